package actions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"homecmd/internal/eventbus"
	logx "homecmd/pkg/logx"
)

// EventTimerDone is published when a countdown reaches zero. Data is a
// TimerDone.
const EventTimerDone = "timer.done"

type TimerDone struct {
	Duration time.Duration
	SetAt    time.Time
}

// Timer runs one countdown at a time. Setting a new one replaces the
// running one.
type Timer struct {
	mu       sync.Mutex
	bus      eventbus.Bus
	log      logx.Logger
	now      func() time.Time
	after    func(d time.Duration, f func()) func() bool
	gen      uint64
	stop     func() bool
	dur      time.Duration
	setAt    time.Time
	deadline time.Time
}

type TimerOption func(*Timer)

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(fn func(d time.Duration, f func()) func() bool) TimerOption {
	return func(t *Timer) { t.after = fn }
}

func WithTimerNow(now func() time.Time) TimerOption {
	return func(t *Timer) { t.now = now }
}

func NewTimer(bus eventbus.Bus, log logx.Logger, opts ...TimerOption) *Timer {
	t := &Timer{
		bus: bus,
		log: log.With(logx.String("comp", "timer")),
		now: time.Now,
		after: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Timer) SetTimer(ctx context.Context, d time.Duration) (string, error) {
	if d <= 0 {
		return "", fmt.Errorf("timer: duration must be positive, got %s", d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	replaced := t.stopLocked()
	t.gen++
	gen := t.gen
	t.dur, t.setAt = d, t.now()
	t.deadline = t.setAt.Add(d)
	t.stop = t.after(d, func() { t.expire(gen) })

	t.log.Info("timer set", logx.Duration("duration", d), logx.Bool("replaced", replaced))
	if replaced {
		return fmt.Sprintf("Timer reset for %s.", HumanDuration(d)), nil
	}
	return fmt.Sprintf("Timer set for %s.", HumanDuration(d)), nil
}

func (t *Timer) CancelTimer(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopLocked() {
		return "No timer is running.", nil
	}
	t.log.Info("timer cancelled")
	return "Timer cancelled.", nil
}

// Remaining reports the time left on the running countdown.
func (t *Timer) Remaining() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return 0, false
	}
	return max(t.deadline.Sub(t.now()), 0), true
}

func (t *Timer) stopLocked() bool {
	if t.stop == nil {
		return false
	}
	t.stop()
	t.stop = nil
	t.gen++
	return true
}

func (t *Timer) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.stop == nil {
		t.mu.Unlock()
		return
	}
	t.stop = nil
	done := TimerDone{Duration: t.dur, SetAt: t.setAt}
	t.mu.Unlock()

	t.log.Info("timer done", logx.Duration("duration", done.Duration))
	if t.bus != nil {
		t.bus.Publish(eventbus.Event{Type: EventTimerDone, Time: t.now(), Data: done})
	}
}

// HumanDuration renders d as "1 hour 30 minutes" style text.
func HumanDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	d = d.Round(time.Second)
	parts := make([]string, 0, 3)
	for _, u := range []struct {
		size time.Duration
		name string
	}{
		{time.Hour, "hour"},
		{time.Minute, "minute"},
		{time.Second, "second"},
	} {
		n := d / u.size
		if n == 0 {
			continue
		}
		d -= n * u.size
		if n == 1 {
			parts = append(parts, "1 "+u.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		}
	}
	return strings.Join(parts, " ")
}
