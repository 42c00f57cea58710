package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/oncorisk/pkg/observability/metrics"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

type MetricsHandler struct {
	registry *session.Registry
	started  time.Time
}

type HealthStatus struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

func NewMetricsHandler(registry *session.Registry) *MetricsHandler {
	return &MetricsHandler{registry: registry, started: time.Now()}
}

func (h *MetricsHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
}

func (h *MetricsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthStatus{
		Status:   "healthy",
		Sessions: h.registry.Len(),
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *MetricsHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.ObserveActiveSessions(h.registry.Len())
	metrics.WritePrometheus(w)
}
