package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/stridelake/stridelake/pkg/strava"
)

type SyncRequest struct {
	AthleteIDs  []int64    `json:"athlete_ids,omitempty"`
	After       *time.Time `json:"after,omitempty"`
	Before      *time.Time `json:"before,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	BypassCheck bool       `json:"bypass_check,omitempty"`
}

type SyncResponse struct {
	UpdatedActivities []strava.AthleteUpdate `json:"updated_activities"`
}

func (h *Handlers) SyncActivities(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Sync == nil {
		h.writeError(w, http.StatusServiceUnavailable, "strava sync is not configured")
		return
	}

	var req SyncRequest
	// An empty body syncs every athlete.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	opts := strava.UpdateOptions{
		AthleteIDs:  req.AthleteIDs,
		Limit:       req.Limit,
		BypassCheck: req.BypassCheck,
	}
	if req.After != nil {
		opts.After = *req.After
	}
	if req.Before != nil {
		opts.Before = *req.Before
	}
	if !opts.After.IsZero() && !opts.Before.IsZero() && !opts.After.Before(opts.Before) {
		h.writeError(w, http.StatusBadRequest, "after must be earlier than before")
		return
	}

	updates, err := h.cfg.Sync.UpdateAll(r.Context(), opts)
	if err != nil {
		h.log.Error("api: activity sync failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to sync activities")
		return
	}
	h.writeJSON(w, http.StatusOK, SyncResponse{UpdatedActivities: updates})
}
