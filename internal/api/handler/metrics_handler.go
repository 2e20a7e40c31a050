package handler

import (
	"net/http"

	"github.com/notifyhub/tubealert/internal/queue"
)

// MetricsHandler serves a human-readable JSON snapshot of the pipeline.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	q       queue.Queue
	workers WorkerController
}

func NewMetricsHandler(q queue.Queue, workers WorkerController) *MetricsHandler {
	return &MetricsHandler{q: q, workers: workers}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth and worker snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	depth, err := h.q.Depth(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": depth,
		"workers":     h.workers.Status(),
	})
}
