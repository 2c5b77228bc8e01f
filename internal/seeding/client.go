package seeding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
)

// Client talks to the tatami HTTP API for one tournament. Every mutating
// call carries a fresh command id, so resty's retries are safe.
type Client struct {
	http *resty.Client
	base string
}

type categoriesBody struct {
	Categories []types.Category `json:"categories"`
}

type conflictsBody struct {
	Conflicts []types.OverlapPair `json:"conflicts"`
}

type timelineBody struct {
	Day  types.Day           `json:"day"`
	Mats []types.MatTimeline `json:"mats"`
}

type autoPackBody struct {
	scheduler.PackReport
	Duplicate bool `json:"duplicate"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a client bound to cfg.BaseURL and cfg.TournamentID.
func NewClient(cfg *Config) *Client {
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{
		http: hc,
		base: "/tournaments/" + url.PathEscape(cfg.TournamentID),
	}
}

// Health checks the service liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode())
	}
	return nil
}

// PutConfig replaces the tournament config and returns the resulting grid.
func (c *Client) PutConfig(ctx context.Context, cfg types.ScheduleConfig) (scheduler.GridInfo, error) {
	var grid scheduler.GridInfo
	err := c.command(ctx, http.MethodPut, "/config", cfg, &grid)
	return grid, err
}

// PutCategories replaces the category list.
func (c *Client) PutCategories(ctx context.Context, categories []types.Category) error {
	return c.command(ctx, http.MethodPut, "/categories", categoriesBody{Categories: categories}, nil)
}

// AutoPack packs every unassigned category across all competition days.
func (c *Client) AutoPack(ctx context.Context) (scheduler.PackReport, error) {
	var out autoPackBody
	err := c.command(ctx, http.MethodPost, "/autopack", struct{}{}, &out)
	return out.PackReport, err
}

// Timeline fetches the per-mat schedule for day.
func (c *Client) Timeline(ctx context.Context, day types.Day) ([]types.MatTimeline, error) {
	var out timelineBody
	err := c.query(ctx, "/timeline", map[string]string{"day": string(day)}, &out)
	return out.Mats, err
}

// Conflicts fetches every pair of categories sharing competitors.
func (c *Client) Conflicts(ctx context.Context) ([]types.OverlapPair, error) {
	var out conflictsBody
	err := c.query(ctx, "/conflicts", nil, &out)
	return out.Conflicts, err
}

func (c *Client) command(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader(commandIDHeader, uuid.NewString()).
		SetBody(body).
		SetError(&apiError{})
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, c.base+path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return checkResponse(method, path, resp)
}

func (c *Client) query(ctx context.Context, path string, params map[string]string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		SetError(&apiError{}).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return checkResponse(http.MethodGet, path, resp)
}

func checkResponse(method, path string, resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	if e, ok := resp.Error().(*apiError); ok && e.Code != "" {
		return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode(), e.Code, e.Message)
	}
	return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode())
}
