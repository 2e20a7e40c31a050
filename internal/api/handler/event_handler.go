package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/tubealert/internal/api/middleware"
	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/queue"
)

// EventHandler accepts already-normalized video events.
type EventHandler struct {
	q      queue.Queue
	logger *zap.Logger
	now    func() time.Time
}

func NewEventHandler(q queue.Queue, logger *zap.Logger) *EventHandler {
	return &EventHandler{q: q, logger: logger, now: time.Now}
}

// Enqueue handles POST /api/v1/events
//
// @Summary  Enqueue a video event for fan-out
// @Tags     events
// @Accept   json
// @Produce  json
// @Param    body  body      domain.VideoEvent  true  "Video event"
// @Success  201   {object}  map[string]int64
// @Failure  400   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/events [post]
func (h *EventHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var e domain.VideoEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := e.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now().UTC()
	}

	id, err := h.q.Enqueue(r.Context(), e)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("enqueue event failed",
			zap.String("video_id", e.VideoID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{"msg_id": id})
}
