package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/tubealert/internal/api/middleware"
	"github.com/notifyhub/tubealert/internal/ingest"
	"github.com/notifyhub/tubealert/internal/queue"
)

// WebhookHandler receives hub push notifications. One notification may
// carry several entries; each becomes its own queue message.
type WebhookHandler struct {
	q      queue.Queue
	logger *zap.Logger
	now    func() time.Time
}

func NewWebhookHandler(q queue.Queue, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{q: q, logger: logger, now: time.Now}
}

// YouTube handles POST /webhooks/youtube
//
// Entries are enqueued without validation; the queue worker drops
// malformed ones so every delivery is accounted for in one place.
//
// @Summary  Receive a hub Atom notification
// @Tags     webhooks
// @Accept   xml
// @Success  204
// @Failure  400  {object}  map[string]string
// @Router   /webhooks/youtube [post]
func (h *WebhookHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	log := apimw.Logger(r.Context(), h.logger)

	events, err := ingest.ParseAtom(r.Body, h.now())
	if err != nil {
		log.Warn("unparseable hub notification", zap.Error(err))
		respondError(w, http.StatusBadRequest, "invalid feed body")
		return
	}

	for _, e := range events {
		// A 5xx makes the hub redeliver the whole notification; already
		// enqueued entries are deduplicated by the ledger.
		if _, err := h.q.Enqueue(r.Context(), e); err != nil {
			log.Error("enqueue hub entry failed", zap.String("video_id", e.VideoID), zap.Error(err))
			mapError(w, err)
			return
		}
	}

	log.Info("hub notification accepted", zap.Int("entries", len(events)))
	w.WriteHeader(http.StatusNoContent)
}
