package api

import (
	"net/http"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
)

// eventsHandler serves custom timeline events such as opening ceremonies
// and breaks.
type eventsHandler struct {
	deps Dependencies
}

type eventsResponse struct {
	Events []types.CustomEvent `json:"events"`
}

type eventResponse struct {
	Event     *types.CustomEvent `json:"event,omitempty"`
	Duplicate bool               `json:"duplicate"`
}

func decodeEvent(r *http.Request) (types.CustomEvent, error) {
	e := types.CustomEvent{Time: types.NoClock}
	err := decodeBody(r, &e)
	return e, err
}

func (h *eventsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	sch, err := h.deps.Lookup(r.Context(), r.PathValue("tid"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: sch.Events(r.Context())})
}

func (h *eventsHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	e, err := decodeEvent(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	var added types.CustomEvent
	dup, err := h.deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), func(s *scheduler.Scheduler) error {
		var err error
		added, err = s.AddEvent(r.Context(), e)
		return err
	})
	switch {
	case err != nil:
		writeFailure(w, err)
	case dup:
		writeJSON(w, http.StatusOK, eventResponse{Duplicate: true})
	default:
		writeJSON(w, http.StatusCreated, eventResponse{Event: &added})
	}
}

func (h *eventsHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	e, err := decodeEvent(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	var updated types.CustomEvent
	dup, err := h.deps.Execute(r.Context(), r.PathValue("tid"), commandID(r), func(s *scheduler.Scheduler) error {
		var err error
		updated, err = s.UpdateEvent(r.Context(), r.PathValue("eid"), e)
		return err
	})
	switch {
	case err != nil:
		writeFailure(w, err)
	case dup:
		writeJSON(w, http.StatusOK, eventResponse{Duplicate: true})
	default:
		writeJSON(w, http.StatusOK, eventResponse{Event: &updated})
	}
}

func (h *eventsHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ack(w, r, h.deps, func(s *scheduler.Scheduler) error {
		return s.RemoveEvent(r.Context(), r.PathValue("eid"))
	})
}
