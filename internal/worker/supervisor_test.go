package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/worker"
)

// blockingRunner runs until its context is cancelled.
type blockingRunner struct {
	started chan struct{}
	exited  chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 1), exited: make(chan struct{}, 1)}
}

func (r *blockingRunner) Run(ctx context.Context) {
	r.started <- struct{}{}
	<-ctx.Done()
	r.exited <- struct{}{}
}

type stateLog struct {
	mu     sync.Mutex
	events []string
}

func (l *stateLog) record(name string, running bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := "stopped"
	if running {
		state = "running"
	}
	l.events = append(l.events, name+":"+state)
}

func TestSupervisor_Lifecycle(t *testing.T) {
	log := &stateLog{}
	s := worker.NewSupervisor(context.Background(), zap.NewNop(), log.record)
	r := newBlockingRunner()
	s.Register(worker.NameQueue, r)

	if st := s.Status()[worker.NameQueue]; st.Running {
		t.Fatal("registered worker must start stopped")
	}

	if err := s.Start(worker.NameQueue); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-r.started

	st := s.Status()[worker.NameQueue]
	if !st.Running || st.StartedAt == nil {
		t.Fatalf("expected running with start time, got %+v", st)
	}
	if err := s.Start(worker.NameQueue); err != domain.ErrWorkerRunning {
		t.Fatalf("expected ErrWorkerRunning, got %v", err)
	}

	if err := s.Stop(worker.NameQueue); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-r.exited:
	default:
		t.Fatal("Stop returned before the loop exited")
	}
	if s.Status()[worker.NameQueue].Running {
		t.Fatal("expected stopped after Stop")
	}
	if err := s.Stop(worker.NameQueue); err != domain.ErrWorkerStopped {
		t.Fatalf("expected ErrWorkerStopped, got %v", err)
	}

	// A stopped worker can be started again.
	if err := s.Start(worker.NameQueue); err != nil {
		t.Fatalf("restart: %v", err)
	}
	<-r.started
	s.StopAll()
	<-r.exited

	want := []string{"queue:stopped", "queue:running", "queue:stopped", "queue:running", "queue:stopped"}
	if len(log.events) != len(want) {
		t.Fatalf("expected state changes %v, got %v", want, log.events)
	}
	for i := range want {
		if log.events[i] != want[i] {
			t.Fatalf("expected state changes %v, got %v", want, log.events)
		}
	}
}

func TestSupervisor_UnknownWorker(t *testing.T) {
	s := worker.NewSupervisor(context.Background(), zap.NewNop(), nil)
	if err := s.Start("nope"); err != domain.ErrUnknownWorker {
		t.Fatalf("expected ErrUnknownWorker on start, got %v", err)
	}
	if err := s.Stop("nope"); err != domain.ErrUnknownWorker {
		t.Fatalf("expected ErrUnknownWorker on stop, got %v", err)
	}
}

func TestSupervisor_BaseContextStopsWorkers(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	s := worker.NewSupervisor(base, zap.NewNop(), nil)
	r := newBlockingRunner()
	s.Register(worker.NameEmail, r)

	if err := s.Start(worker.NameEmail); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-r.started
	cancel()
	<-r.exited
	s.StopAll()
}

func TestSupervisor_Names(t *testing.T) {
	s := worker.NewSupervisor(context.Background(), zap.NewNop(), nil)
	s.Register(worker.NameSubscriptionCheck, newBlockingRunner())
	s.Register(worker.NameQueue, newBlockingRunner())
	s.Register(worker.NameEmail, newBlockingRunner())

	got := s.Names()
	want := []string{"email", "queue", "subscription-check"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSupervisor_RequestStop(t *testing.T) {
	s := worker.NewSupervisor(context.Background(), zap.NewNop(), nil)
	r := newBlockingRunner()
	s.Register(worker.NameEmail, r)

	if err := s.RequestStop(worker.NameEmail); err != domain.ErrWorkerStopped {
		t.Fatalf("expected ErrWorkerStopped, got %v", err)
	}
	if err := s.Start(worker.NameEmail); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-r.started

	if err := s.RequestStop(worker.NameEmail); err != nil {
		t.Fatalf("request stop: %v", err)
	}
	<-r.exited

	// Rejected whether or not the first request has settled.
	if err := s.RequestStop(worker.NameEmail); err != domain.ErrWorkerStopped {
		t.Fatalf("expected ErrWorkerStopped, got %v", err)
	}
}

// drainingRunner keeps working after cancellation until released, like a
// loop finishing an in-flight message.
type drainingRunner struct {
	started   chan struct{}
	cancelled chan struct{}
	release   chan struct{}
	finished  atomic.Bool
}

func (r *drainingRunner) Run(ctx context.Context) {
	close(r.started)
	<-ctx.Done()
	close(r.cancelled)
	<-r.release
	r.finished.Store(true)
}

func TestSupervisor_StopAllWaitsForStoppingWorker(t *testing.T) {
	s := worker.NewSupervisor(context.Background(), zap.NewNop(), nil)
	r := &drainingRunner{
		started:   make(chan struct{}),
		cancelled: make(chan struct{}),
		release:   make(chan struct{}),
	}
	s.Register(worker.NameQueue, r)

	if err := s.Start(worker.NameQueue); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-r.started
	if err := s.RequestStop(worker.NameQueue); err != nil {
		t.Fatalf("request stop: %v", err)
	}
	<-r.cancelled

	go close(r.release)
	s.StopAll()

	if !r.finished.Load() {
		t.Fatalf("StopAll returned while the worker was still draining: %+v", s.Status()[worker.NameQueue])
	}
}
