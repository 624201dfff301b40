package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/folio/backend/internal/api/handlers"
	"github.com/wonny/folio/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(portfolio *handlers.PortfolioHandler, admin *handlers.AdminHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Portfolio analytics
	p := api.PathPrefix("/portfolios/{id}").Subrouter()
	p.HandleFunc("/positions", portfolio.GetPositions).Methods("GET")
	p.HandleFunc("/history", portfolio.GetHistory).Methods("GET")
	p.HandleFunc("/performance", portfolio.GetPerformance).Methods("GET")
	p.HandleFunc("/risk", portfolio.GetRisk).Methods("GET")
	p.HandleFunc("/benchmark", portfolio.GetBenchmarkComparison).Methods("GET")
	p.HandleFunc("/realized", portfolio.GetRealizedGains).Methods("GET")
	p.HandleFunc("/projection", portfolio.ProjectGoal).Methods("POST")

	// Operations
	api.HandleFunc("/admin/jobs", admin.GetJobs).Methods("GET")
	api.HandleFunc("/admin/jobs/{name}/run", admin.RunJob).Methods("POST")
	api.HandleFunc("/admin/backfill", admin.Backfill).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "folio-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
