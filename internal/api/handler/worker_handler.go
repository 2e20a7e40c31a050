package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/worker"
)

// WorkerController is the slice of worker.Supervisor the control API uses.
type WorkerController interface {
	Start(name string) error
	RequestStop(name string) error
	Status() map[string]worker.State
}

// WorkerHandler is the start/stop/status control surface for the
// background workers.
type WorkerHandler struct {
	workers WorkerController
	logger  *zap.Logger
}

func NewWorkerHandler(workers WorkerController, logger *zap.Logger) *WorkerHandler {
	return &WorkerHandler{workers: workers, logger: logger}
}

// List handles GET /api/v1/workers
//
// @Summary  Worker status
// @Tags     workers
// @Produce  json
// @Success  200  {object}  map[string]worker.State
// @Router   /api/v1/workers [get]
func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workers.Status())
}

// Start handles POST /api/v1/workers/{name}/start
//
// @Summary  Start a worker
// @Tags     workers
// @Param    name  path  string  true  "Worker name"
// @Success  202   {object}  map[string]string
// @Failure  404   {object}  map[string]string
// @Failure  409   {object}  map[string]string
// @Router   /api/v1/workers/{name}/start [post]
func (h *WorkerHandler) Start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.workers.Start(name); err != nil {
		mapError(w, err)
		return
	}
	h.logger.Info("worker start requested", zap.String("worker", name))
	respondJSON(w, http.StatusAccepted, map[string]string{"worker": name, "status": "starting"})
}

// Stop handles POST /api/v1/workers/{name}/stop
//
// The loop finishes its current unit of work before it exits, so the
// response only confirms the request.
//
// @Summary  Stop a worker
// @Tags     workers
// @Param    name  path  string  true  "Worker name"
// @Success  202   {object}  map[string]string
// @Failure  404   {object}  map[string]string
// @Failure  409   {object}  map[string]string
// @Router   /api/v1/workers/{name}/stop [post]
func (h *WorkerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.workers.RequestStop(name); err != nil {
		mapError(w, err)
		return
	}
	h.logger.Info("worker stop requested", zap.String("worker", name))
	respondJSON(w, http.StatusAccepted, map[string]string{"worker": name, "status": "stopping"})
}
