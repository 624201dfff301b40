package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/engine"
	"github.com/wonny/folio/backend/pkg/logger"
)

// PortfolioHandler handles portfolio analytics API endpoints
type PortfolioHandler struct {
	engine *engine.Service
	logger *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(eng *engine.Service, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		engine: eng,
		logger: log,
	}
}

// GetPositions returns the current holdings
// GET /api/portfolios/{id}/positions
func (h *PortfolioHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	positions, err := h.engine.Positions(ctx, id)
	if err != nil {
		h.respondEngineError(w, err, "Failed to build positions")
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

// GetHistory returns the portfolio value time series
// GET /api/portfolios/{id}/history?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *PortfolioHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	period, err := parsePeriod(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.engine.History(ctx, id, period)
	if err != nil {
		h.respondEngineError(w, err, "Failed to build history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// GetPerformance returns return metrics for a period
// GET /api/portfolios/{id}/performance?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *PortfolioHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	period, err := parsePeriod(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics, err := h.engine.Performance(ctx, id, period)
	if err != nil {
		h.respondEngineError(w, err, "Failed to compute performance")
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// GetRisk returns risk metrics for a period
// GET /api/portfolios/{id}/risk?benchmark=SPY&start=&end=
func (h *PortfolioHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	period, err := parsePeriod(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	benchmark := r.URL.Query().Get("benchmark")

	metrics, err := h.engine.RiskReport(ctx, id, benchmark, period)
	if err != nil {
		h.respondEngineError(w, err, "Failed to compute risk metrics")
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// GetBenchmarkComparison returns the rebased benchmark comparison
// GET /api/portfolios/{id}/benchmark?symbol=SPY&start=&end=
func (h *PortfolioHandler) GetBenchmarkComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	period, err := parsePeriod(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	comparison, err := h.engine.CompareBenchmark(ctx, id, symbol, period)
	if err != nil {
		h.respondEngineError(w, err, "Failed to compare against benchmark")
		return
	}

	respondJSON(w, http.StatusOK, comparison)
}

// GetRealizedGains returns the outcome of every disposal
// GET /api/portfolios/{id}/realized
func (h *PortfolioHandler) GetRealizedGains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	gains, err := h.engine.RealizedGains(ctx, id)
	if err != nil {
		h.respondEngineError(w, err, "Failed to compute realized gains")
		return
	}

	respondJSON(w, http.StatusOK, gains)
}

// ProjectionRequest is the body of a goal projection request
type ProjectionRequest struct {
	TargetAmount        float64 `json:"target_amount"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	TargetDate          string  `json:"target_date,omitempty"` // YYYY-MM-DD
}

// ProjectGoal runs the Monte Carlo goal simulation
// POST /api/portfolios/{id}/projection
func (h *PortfolioHandler) ProjectGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req ProjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TargetAmount <= 0 {
		respondError(w, http.StatusBadRequest, "target_amount must be positive")
		return
	}

	goal := engine.GoalRequest{
		TargetAmount:        req.TargetAmount,
		MonthlyContribution: req.MonthlyContribution,
	}
	if req.TargetDate != "" {
		date, err := time.Parse("2006-01-02", req.TargetDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
			return
		}
		goal.TargetDate = &date
	}

	result, err := h.engine.ProjectGoal(ctx, id, goal)
	if err != nil {
		h.respondEngineError(w, err, "Failed to project goal")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondEngineError maps engine errors to HTTP status codes
func (h *PortfolioHandler) respondEngineError(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, contracts.ErrNoHoldings) {
		respondError(w, http.StatusNotFound, "portfolio has no holdings")
		return
	}

	h.logger.WithError(err).Error(logMsg)
	respondError(w, http.StatusInternalServerError, logMsg)
}

// parsePeriod reads optional start/end query parameters
func parsePeriod(r *http.Request) (engine.Period, error) {
	var period engine.Period

	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return period, errors.New("start must be YYYY-MM-DD")
		}
		period.Start = t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse("2006-01-02", e)
		if err != nil {
			return period, errors.New("end must be YYYY-MM-DD")
		}
		period.End = t
	}
	if !period.Start.IsZero() && !period.End.IsZero() && period.End.Before(period.Start) {
		return period, errors.New("end must not precede start")
	}
	return period, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
