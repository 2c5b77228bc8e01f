package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/tatami/internal/domain/conflict"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
)

// placementsHandler serves placement commands and the conflict detector.
type placementsHandler struct {
	deps Dependencies
}

type placementsResponse struct {
	Placements []types.Placement `json:"placements"`
}

func (h *placementsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	ps := sch.Placements(r.Context(), day)
	if ps == nil {
		ps = []types.Placement{}
	}
	writeJSON(w, http.StatusOK, placementsResponse{Placements: ps})
}

// placeRequest mirrors the OpenAPI schema for placement bodies.
type placeRequest struct {
	CategoryID string      `json:"category_id,omitempty"`
	Day        string      `json:"day"`
	Mat        int         `json:"mat"`
	Time       types.Clock `json:"time"`
	Order      *int        `json:"order,omitempty"`
}

func decodePlaceRequest(r *http.Request) (placeRequest, types.Day, error) {
	req := placeRequest{Time: types.NoClock}
	if err := decodeBody(r, &req); err != nil {
		return req, "", err
	}
	day, err := parseDay(req.Day)
	if err != nil {
		return req, "", err
	}
	if day == "" {
		return req, "", fmt.Errorf("%w: missing day", ErrBadRequest)
	}
	return req, day, nil
}

type evaluateResponse struct {
	Blocked  bool                    `json:"blocked"`
	Warnings []types.ConflictWarning `json:"warnings"`
}

func (h *placementsHandler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	req, day, err := decodePlaceRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	ws, err := sch.Evaluate(r.Context(), req.CategoryID, day, req.Mat, req.Time)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if ws == nil {
		ws = []types.ConflictWarning{}
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Blocked: conflict.HasErrors(ws), Warnings: ws})
}

type placeResponse struct {
	Placement *types.Placement        `json:"placement,omitempty"`
	Warnings  []types.ConflictWarning `json:"warnings"`
	Duplicate bool                    `json:"duplicate"`
}

func (h *placementsHandler) handlePlace(w http.ResponseWriter, r *http.Request) {
	req, day, err := decodePlaceRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	cid := r.PathValue("cid")
	if req.CategoryID != "" && req.CategoryID != cid {
		writeError(w, http.StatusBadRequest, "invalid_request", errors.New("category id does not match path"))
		return
	}

	var (
		placed   types.Assignment
		warnings []types.ConflictWarning
	)
	dup, err := h.deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), func(s *scheduler.Scheduler) error {
		var err error
		placed, warnings, err = s.Place(r.Context(), scheduler.PlaceRequest{
			CategoryID: cid,
			Day:        day,
			Mat:        req.Mat,
			Time:       req.Time,
			Order:      req.Order,
		})
		return err
	})
	if warnings == nil {
		warnings = []types.ConflictWarning{}
	}
	switch {
	case errors.Is(err, scheduler.ErrPlacementRejected):
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Code:     "placement_rejected",
			Message:  err.Error(),
			Warnings: warnings,
		})
	case err != nil:
		writeFailure(w, err)
	case dup:
		writeJSON(w, http.StatusOK, placeResponse{Warnings: warnings, Duplicate: true})
	default:
		writeJSON(w, http.StatusOK, placeResponse{
			Placement: &types.Placement{CategoryID: cid, Assignment: placed},
			Warnings:  warnings,
		})
	}
}

type unassignResponse struct {
	Removed   bool `json:"removed"`
	Duplicate bool `json:"duplicate"`
}

func (h *placementsHandler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	var removed bool
	dup, err := h.deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), func(s *scheduler.Scheduler) error {
		var err error
		removed, err = s.Unassign(r.Context(), r.PathValue("cid"))
		return err
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unassignResponse{Removed: removed, Duplicate: dup})
}
