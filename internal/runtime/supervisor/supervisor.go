// Package supervisor runs the long-lived goroutines of homecmd (scheduler
// loop, config watcher, reload loop) under one context with panic recovery.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	logx "homecmd/pkg/logx"
)

// Supervisor manages goroutines tied to a shared context.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         logx.Logger
	cancelOnErr bool

	errOnce  sync.Once
	firstErr atomic.Pointer[error]

	wg       sync.WaitGroup
	doneOnce sync.Once
	doneCh   chan struct{}

	mu    sync.Mutex
	stats map[string]*Stats
}

// Stats is the per-name view of goroutines started through a supervisor.
type Stats struct {
	Name     string    `json:"name"`
	Active   int       `json:"active"`
	Started  int       `json:"started"`
	Restarts int       `json:"restarts"`
	Panics   int       `json:"panics"`
	LastErr  string    `json:"last_err,omitempty"`
	LastStop time.Time `json:"last_stop"`
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError makes the first error from any goroutine cancel the
// supervisor context.
func WithCancelOnError(enabled bool) Option {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		log:    logx.Nop(),
		doneCh: make(chan struct{}),
		stats:  map[string]*Stats{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel cancels the supervisor context without waiting.
func (s *Supervisor) Cancel() { s.cancel() }

// Err returns the first error recorded by any goroutine.
func (s *Supervisor) Err() error {
	if p := s.firstErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Supervisor) setErr(err error) {
	if err == nil {
		return
	}
	s.errOnce.Do(func() { s.firstErr.Store(&err) })
}

func (s *Supervisor) fail(err error) {
	s.setErr(err)
	if s.cancelOnErr {
		s.cancel()
	}
}

// Snapshot returns stats ordered by name.
func (s *Supervisor) Snapshot() []Stats {
	s.mu.Lock()
	out := make([]Stats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b Stats) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (s *Supervisor) note(name string, fn func(st *Stats)) {
	s.mu.Lock()
	st := s.stats[name]
	if st == nil {
		st = &Stats{Name: name}
		s.stats[name] = st
	}
	fn(st)
	s.mu.Unlock()
}

func (s *Supervisor) noteStart(name string, restart bool) {
	s.note(name, func(st *Stats) {
		st.Active++
		st.Started++
		if restart {
			st.Restarts++
		}
	})
}

func (s *Supervisor) noteStop(name string, err error, panicked bool) {
	s.note(name, func(st *Stats) {
		st.Active--
		st.LastStop = time.Now()
		if panicked {
			st.Panics++
		}
		if err != nil {
			st.LastErr = err.Error()
		}
	})
}

// run calls fn once, converting a panic into an error.
func (s *Supervisor) run(name string, fn func(ctx context.Context) error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("goroutine panicked",
				logx.String("name", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			panicked, err = true, fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	return false, fn(s.ctx)
}

// Go runs fn in a named goroutine. A non-nil error other than
// context.Canceled is recorded as the supervisor error.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	s.noteStart(name, false)
	go func() {
		defer s.wg.Done()
		s.log.Debug("goroutine started", logx.String("name", name))

		panicked, err := s.run(name, fn)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil && !panicked {
			err = fmt.Errorf("%s: %w", name, err)
		}
		s.noteStop(name, err, panicked)
		if err != nil {
			s.fail(err)
		}
		s.log.Debug("goroutine stopped", logx.String("name", name))
	}()
}

// Go0 is Go for functions without an error result.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// GoRestart runs fn and restarts it after an error or a panic, with doubling
// backoff between minWait and maxWait, until the context is done. A clean
// return stops it.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, minWait, maxWait time.Duration) {
	if fn == nil {
		return
	}
	if minWait <= 0 {
		minWait = 250 * time.Millisecond
	}
	maxWait = max(maxWait, minWait)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		backoff := minWait
		for restart := false; ; restart = true {
			s.noteStart(name, restart)
			panicked, err := s.run(name, fn)
			stopped := s.ctx.Err() != nil || err == nil || errors.Is(err, context.Canceled)
			if stopped {
				s.noteStop(name, nil, panicked)
				return
			}
			s.noteStop(name, err, panicked)
			s.log.Warn("goroutine restarting",
				logx.String("name", name),
				logx.Duration("backoff", backoff),
				logx.Err(err),
			)
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxWait)
		}
	}()
}

// Stop cancels the context and waits for every goroutine.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

// Wait blocks until all goroutines exit or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.doneOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.doneCh)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return s.Err()
	}
}
