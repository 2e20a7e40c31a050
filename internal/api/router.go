package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/api/handler"
	apimw "github.com/notifyhub/tubealert/internal/api/middleware"
	"github.com/notifyhub/tubealert/internal/queue"
	"github.com/notifyhub/tubealert/internal/repository"
)

// Deps are the collaborators the HTTP surface needs. DB may be nil.
type Deps struct {
	Queue         queue.Queue
	Notifications repository.NotificationRepository
	Workers       handler.WorkerController
	DB            handler.Pinger
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)             // recover panics, return 500
	r.Use(chimw.RealIP)                // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestID)             // fallback id for Correlation
	r.Use(chimw.RequestSize(1<<20))    // 1 MB max request body
	r.Use(apimw.Correlation(d.Logger)) // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(d.Logger))

	// --- handler instances ---
	hh := handler.NewHealthHandler(d.DB, d.Logger)
	eh := handler.NewEventHandler(d.Queue, d.Logger)
	wh := handler.NewWebhookHandler(d.Queue, d.Logger)
	nh := handler.NewNotificationHandler(d.Notifications)
	kh := handler.NewWorkerHandler(d.Workers, d.Logger)
	mh := handler.NewMetricsHandler(d.Queue, d.Workers)

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// Hub push notifications
	r.Post("/webhooks/youtube", wh.YouTube)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", eh.Enqueue)
		r.Get("/notifications/{id}", nh.GetByID)

		// Worker control
		r.Get("/workers", kh.List)
		r.Post("/workers/{name}/start", kh.Start)
		r.Post("/workers/{name}/stop", kh.Stop)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
