package api

import (
	"errors"
	"net/http"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
)

// scheduleHandler serves tournament configuration, categories and the
// whole-schedule views.
type scheduleHandler struct {
	deps Dependencies
}

func (h *scheduleHandler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sch.Grid(r.Context()))
}

func (h *scheduleHandler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg types.ScheduleConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeFailure(w, err)
		return
	}
	var grid scheduler.GridInfo
	dup, err := h.deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), func(s *scheduler.Scheduler) error {
		if err := s.Reconfigure(r.Context(), cfg); err != nil {
			return err
		}
		grid = s.Grid(r.Context())
		return nil
	})
	switch {
	case err != nil:
		writeFailure(w, err)
	case dup:
		writeJSON(w, http.StatusOK, duplicateAck)
	default:
		writeJSON(w, http.StatusOK, grid)
	}
}

type categoriesResponse struct {
	Categories []types.Category `json:"categories"`
}

func (h *scheduleHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: sch.Categories(r.Context())})
}

func (h *scheduleHandler) handlePutCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesResponse
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	ack(w, r, h.deps, func(s *scheduler.Scheduler) error {
		return s.SetCategories(r.Context(), req.Categories)
	})
}

func (h *scheduleHandler) handlePutCategory(w http.ResponseWriter, r *http.Request) {
	var c types.Category
	if err := decodeBody(r, &c); err != nil {
		writeFailure(w, err)
		return
	}
	cid := r.PathValue("cid")
	if c.ID == "" {
		c.ID = cid
	}
	if c.ID != cid {
		writeError(w, http.StatusBadRequest, "invalid_request", errors.New("category id does not match path"))
		return
	}
	ack(w, r, h.deps, func(s *scheduler.Scheduler) error {
		return s.UpsertCategory(r.Context(), c)
	})
}

func (h *scheduleHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ack(w, r, h.deps, func(s *scheduler.Scheduler) error {
		return s.DeleteCategory(r.Context(), r.PathValue("cid"))
	})
}

type conflictsResponse struct {
	Conflicts []types.OverlapPair `json:"conflicts"`
}

func (h *scheduleHandler) handleConflicts(w http.ResponseWriter, r *http.Request) {
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	pairs := sch.Conflicts(r.Context())
	if pairs == nil {
		pairs = []types.OverlapPair{}
	}
	writeJSON(w, http.StatusOK, conflictsResponse{Conflicts: pairs})
}

type timelineResponse struct {
	Day  types.Day           `json:"day"`
	Mats []types.MatTimeline `json:"mats"`
}

func (h *scheduleHandler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if day == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", errors.New("missing day"))
		return
	}
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineResponse{Day: day, Mats: sch.Timeline(r.Context(), day)})
}

type autoPackRequest struct {
	Day string `json:"day"`
}

type autoPackResponse struct {
	scheduler.PackReport
	Duplicate bool `json:"duplicate"`
}

func (h *scheduleHandler) handleAutoPack(w http.ResponseWriter, r *http.Request) {
	var req autoPackRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	day, err := parseDay(req.Day)
	if err != nil {
		writeFailure(w, err)
		return
	}

	var report scheduler.PackReport
	dup, err := h.deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), func(s *scheduler.Scheduler) error {
		var err error
		report, err = s.AutoPack(r.Context(), day)
		return err
	})
	switch {
	case err != nil:
		writeFailure(w, err)
	case dup:
		writeJSON(w, http.StatusOK, autoPackResponse{Duplicate: true})
	default:
		if report.Placements == nil {
			report.Placements = []types.Placement{}
		}
		writeJSON(w, http.StatusOK, autoPackResponse{PackReport: report})
	}
}

// ack runs a command whose response carries no data.
func ack(w http.ResponseWriter, r *http.Request, deps Dependencies, fn func(*scheduler.Scheduler) error) {
	dup, err := deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), fn)
	switch {
	case err != nil:
		writeFailure(w, err)
	case dup:
		writeJSON(w, http.StatusOK, duplicateAck)
	default:
		writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
	}
}
