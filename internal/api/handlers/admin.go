package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/internal/scheduler"
	"github.com/wonny/folio/backend/pkg/logger"
)

// AdminHandler handles operational endpoints: job visibility and
// manual backfills
type AdminHandler struct {
	scheduler *scheduler.Scheduler
	prices    *marketdata.Service
	logger    *logger.Logger
}

// NewAdminHandler creates a new admin handler. scheduler may be nil
// when the API runs without background jobs.
func NewAdminHandler(sched *scheduler.Scheduler, prices *marketdata.Service, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		scheduler: sched,
		prices:    prices,
		logger:    log,
	}
}

// GetJobs returns scheduler job statistics
// GET /api/admin/jobs
func (h *AdminHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}

	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// RunJob triggers a scheduled job immediately
// POST /api/admin/jobs/{name}/run
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}

	name := mux.Vars(r)["name"]
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "job": name})
}

// BackfillRequest is the body of a manual backfill request
type BackfillRequest struct {
	Symbols []string `json:"symbols"`
	Start   string   `json:"start"` // YYYY-MM-DD
	End     string   `json:"end,omitempty"`
}

// Backfill fetches price history for a set of symbols
// POST /api/admin/backfill
func (h *AdminHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		respondError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}

	end := time.Now().UTC()
	if req.End != "" {
		if end, err = time.Parse("2006-01-02", req.End); err != nil {
			respondError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
	}

	total, failures := h.prices.Backfill(ctx, req.Symbols, start, end)

	failed := make(map[string]string, len(failures))
	for symbol, err := range failures {
		failed[symbol] = err.Error()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fetched": total,
		"failed":  failed,
	})
}
