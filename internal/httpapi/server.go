package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/config"
	"github.com/bakkenops/tank-pull-worker/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Server exposes the worker's read-only HTTP surface: Prometheus metrics,
// the health summary, and the per-well status document.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates the HTTP server and hooks it into the fx lifecycle.
func NewServer(lc fx.Lifecycle, cfg *config.Config, repo *repository.Repository, logger *zap.Logger) *Server {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		summary, err := repo.GetHealthSummary(req.Context(), "overall")
		if err != nil {
			http.Error(w, "health summary unavailable", http.StatusInternalServerError)
			return
		}
		if summary == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "unknown"})
			return
		}
		code := http.StatusOK
		if summary.Status == "critical" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, summary)
	})

	r.Get("/status/{well}", func(w http.ResponseWriter, req *http.Request) {
		wellName := chi.URLParam(req, "well")
		status, err := repo.GetWellStatus(req.Context(), wellName)
		if err != nil {
			http.Error(w, "status lookup failed", http.StatusInternalServerError)
			return
		}
		if status == nil {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, http.StatusOK, status)
	})

	s := &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.ServicePort),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("http server listening", zap.String("addr", s.srv.Addr))
				if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.srv.Shutdown(ctx)
		},
	})

	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
