package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrMissingVideoID    = errors.New("video event: videoId must not be empty")
	ErrMissingChannelID  = errors.New("video event: channelId must not be empty")
	ErrInvalidTransition = errors.New("notification status transition not allowed")
	ErrMissingEmail      = errors.New("missing subscriber email")
	ErrQueueEmpty        = errors.New("no visible messages in queue")
	ErrUnknownWorker     = errors.New("unknown worker")
	ErrWorkerRunning     = errors.New("worker is already running")
	ErrWorkerStopped     = errors.New("worker is not running")
)
