package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/momentumchaser/internal/api/handlers"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Handlers groups the endpoint handlers the router mounts
type Handlers struct {
	Data    *handlers.DataHandler
	Scan    *handlers.ScanHandler
	Symbols *handlers.SymbolHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Data.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Scan endpoints (고정 경로가 {date}보다 먼저)
	api.HandleFunc("/scan/latest", h.Scan.GetLatest).Methods("GET")
	api.HandleFunc("/scan/dates", h.Scan.GetDates).Methods("GET")
	api.HandleFunc("/scan/{date:[0-9]{4}-[0-9]{2}-[0-9]{2}}", h.Scan.GetByDate).Methods("GET")

	// Symbol endpoints
	api.HandleFunc("/symbols", h.Symbols.GetSymbols).Methods("GET")
	api.HandleFunc("/symbols/{symbol}/bars", h.Symbols.GetBars).Methods("GET")

	// Universe
	api.HandleFunc("/universe", h.Data.GetUniverse).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(corsMiddleware)

	return r
}

// corsMiddleware lets the static site read the API from another origin.
// The API is read-only, so any origin may GET.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code a handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request with its status; 5xx at warn
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			entry := log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Warn("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
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
