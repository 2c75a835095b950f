package reactor_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/config"
	"github.com/momentics/hioload-reactor/reactor"
)

// recordingObserver counts events and keeps reported errors.
type recordingObserver struct {
	reactor.NopObserver

	mu     sync.Mutex
	counts map[string]int
	errs   []error
	order  []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{counts: make(map[string]int)}
}

func (o *recordingObserver) add(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[event]++
	o.order = append(o.order, event)
}

func (o *recordingObserver) count(event string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[event]
}

func (o *recordingObserver) failures() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errs...)
}

func (o *recordingObserver) WillStart() { o.add("will-start") }
func (o *recordingObserver) DidStart()  { o.add("did-start") }
func (o *recordingObserver) WillStop()  { o.add("will-stop") }
func (o *recordingObserver) DidStop()   { o.add("did-stop") }

func (o *recordingObserver) DidFail(err error) {
	o.mu.Lock()
	o.errs = append(o.errs, err)
	o.mu.Unlock()
	o.add("did-fail")
}

func (o *recordingObserver) DidAccept(t api.Transport)  { o.add("did-accept") }
func (o *recordingObserver) DidConnect(t api.Transport) { o.add("did-connect") }
func (o *recordingObserver) DidTimeout(t api.Transport) { o.add("did-timeout") }
func (o *recordingObserver) DidClose(t api.Transport)   { o.add("did-close") }

func (o *recordingObserver) DidFailTransport(t api.Transport, err error) {
	o.mu.Lock()
	o.errs = append(o.errs, err)
	o.mu.Unlock()
	o.add("did-fail-transport")
}

func eventually(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestStartFailureStopsReactor(t *testing.T) {
	errNoPoll := errors.New("no poller")
	obs := newRecordingObserver()
	r := reactor.New(
		reactor.WithObserver(obs),
		reactor.WithPoller(func() (reactor.Poller, error) { return nil, errNoPoll }),
	)

	if err := r.Start(); !errors.Is(err, errNoPoll) {
		t.Fatalf("Start = %v", err)
	}
	if !r.IsStopped() || r.IsRunning() {
		t.Fatal("a reactor that failed to start must be stopped")
	}
	if err := r.Start(); !errors.Is(err, errNoPoll) {
		t.Fatalf("second Start = %v", err)
	}
	if _, err := r.Register(nil, api.FlowRead); err == nil {
		t.Fatal("Register on a failed reactor should fail")
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop = %v", err)
	}
	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed")
	}
	if obs.count("did-start") != 0 {
		t.Fatal("DidStart fired for a reactor that never ran")
	}
}

func TestStopBeforeStart(t *testing.T) {
	obs := newRecordingObserver()
	r := reactor.New(reactor.WithObserver(obs))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop = %v", err)
	}
	if err := r.Start(); err != api.ErrReactorStopped {
		t.Fatalf("Start after Stop = %v", err)
	}
	if obs.count("did-stop") != 1 {
		t.Fatalf("DidStop fired %d times", obs.count("did-stop"))
	}
}

func TestOptionsFromConfig(t *testing.T) {
	conf := config.Defaults()
	conf.Reactor.IdleTimeout = config.Duration{Duration: 3 * time.Second}
	conf.Reactor.IdleCheckInterval = config.Duration{Duration: 200 * time.Millisecond}
	r := reactor.New(reactor.WithConfig(conf.Reactor), reactor.WithObserver(reactor.NopObserver{}))

	if r.IdleTimeout() != 3*time.Second || r.IdleCheckInterval() != 200*time.Millisecond {
		t.Fatalf("idle = %v/%v", r.IdleTimeout(), r.IdleCheckInterval())
	}
	r.SetIdleTimeout(0)
	if r.IdleTimeout() != 0 {
		t.Fatal("SetIdleTimeout not applied")
	}
	if r.Executor() != nil {
		t.Fatal("no executor before Start")
	}
}
