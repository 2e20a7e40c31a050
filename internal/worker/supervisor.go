package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/domain"
)

// Worker names used by the control API and AUTOSTART_WORKERS.
const (
	NameQueue             = "queue"
	NameEmail             = "email"
	NameSubscriptionCheck = "subscription-check"
)

// Runner is a long-lived loop that returns once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context)
}

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the worker constructor signatures clean. Nil fields
// are no-ops.
type MetricHooks struct {
	OnOutcome    func(outcome domain.Outcome)
	OnQueueDepth func(depth int)
	OnSent       func(latency time.Duration)
	OnFailed     func(reason string)
	OnReset      func()
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnOutcome == nil {
		h.OnOutcome = func(domain.Outcome) {}
	}
	if h.OnQueueDepth == nil {
		h.OnQueueDepth = func(int) {}
	}
	if h.OnSent == nil {
		h.OnSent = func(time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(string) {}
	}
	if h.OnReset == nil {
		h.OnReset = func() {}
	}
	return h
}

// State is the externally visible status of one registered worker.
type State struct {
	Running   bool       `json:"running"`
	Stopping  bool       `json:"stopping,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type handle struct {
	runner    Runner
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

// Supervisor owns the lifecycle of every named worker loop. Loops run under
// a context derived from the supervisor's base context, so a start issued
// from an HTTP request outlives that request.
type Supervisor struct {
	base   context.Context
	logger *zap.Logger

	mu      sync.Mutex
	workers map[string]*handle

	onStateChange func(name string, running bool)
}

// NewSupervisor creates an empty registry. onStateChange is optional.
func NewSupervisor(base context.Context, logger *zap.Logger, onStateChange func(string, bool)) *Supervisor {
	if onStateChange == nil {
		onStateChange = func(string, bool) {}
	}
	return &Supervisor{
		base:          base,
		logger:        logger,
		workers:       make(map[string]*handle),
		onStateChange: onStateChange,
	}
}

// Register adds a stopped worker under name. Registering a name twice keeps
// the first runner.
func (s *Supervisor) Register(name string, r Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workers[name]; ok {
		return
	}
	s.workers[name] = &handle{runner: r}
	s.onStateChange(name, false)
}

// Start launches the named loop. A worker that is still shutting down
// counts as running.
func (s *Supervisor) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.workers[name]
	if !ok {
		return domain.ErrUnknownWorker
	}
	if h.done != nil {
		return domain.ErrWorkerRunning
	}

	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done
	h.startedAt = time.Now().UTC()

	go func() {
		defer close(done)
		h.runner.Run(ctx)
	}()

	s.logger.Info("worker started", zap.String("worker", name))
	s.onStateChange(name, true)
	return nil
}

// Stop cancels the named loop and waits for it to return. In-flight work
// finishes first, so this can take up to the worker's work timeout.
func (s *Supervisor) Stop(name string) error {
	h, done, err := s.cancel(name)
	if err != nil {
		return err
	}
	<-done
	s.stopped(name, h, done)
	return nil
}

// RequestStop cancels the named loop without waiting for it. Until the
// loop has returned the worker reports running and stopping.
func (s *Supervisor) RequestStop(name string) error {
	h, done, err := s.cancel(name)
	if err != nil {
		return err
	}
	go func() {
		<-done
		s.stopped(name, h, done)
	}()
	return nil
}

func (s *Supervisor) cancel(name string) (*handle, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.workers[name]
	if !ok {
		return nil, nil, domain.ErrUnknownWorker
	}
	if h.done == nil || h.cancel == nil {
		return nil, nil, domain.ErrWorkerStopped
	}
	h.cancel()
	h.cancel = nil
	return h, h.done, nil
}

func (s *Supervisor) stopped(name string, h *handle, done chan struct{}) {
	s.mu.Lock()
	if h.done == done {
		h.done = nil
	}
	s.mu.Unlock()

	s.logger.Info("worker stopped", zap.String("worker", name))
	s.onStateChange(name, false)
}

// StopAll stops every running worker and waits for all of them, including
// workers already stopping after RequestStop.
func (s *Supervisor) StopAll() {
	type pendingStop struct {
		name    string
		h       *handle
		done    chan struct{}
		settles bool
	}

	s.mu.Lock()
	var pending []pendingStop
	for name, h := range s.workers {
		if h.done == nil {
			continue
		}
		p := pendingStop{name: name, h: h, done: h.done}
		if h.cancel != nil {
			h.cancel()
			h.cancel = nil
			p.settles = true
		}
		pending = append(pending, p)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range pending {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-p.done
			// RequestStop's own goroutine settles the ones it cancelled.
			if p.settles {
				s.stopped(p.name, p.h, p.done)
			}
		}()
	}
	wg.Wait()
}

// Status returns a snapshot of every registered worker.
func (s *Supervisor) Status() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]State, len(s.workers))
	for name, h := range s.workers {
		st := State{}
		if h.done != nil {
			started := h.startedAt
			st.Running = true
			st.Stopping = h.cancel == nil
			st.StartedAt = &started
		}
		out[name] = st
	}
	return out
}

func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.workers))
	for name := range s.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
