package scheduler

import (
	"container/heap"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"homecmd/internal/command"
	"homecmd/internal/eventbus"
	logx "homecmd/pkg/logx"
)

const defaultHistorySize = 64

// Scheduler owns the set of scheduled tasks and fires each one once.
//
// Enqueue, Cancel and the Run loop share one mutex. Every status transition
// is a compare-and-set done while holding it, so a task is observed either
// pending or in exactly one terminal state.
type Scheduler struct {
	mu sync.Mutex

	log   logx.Logger
	bus   eventbus.Bus
	clock Clock
	loc   *time.Location

	parser cron.Parser

	seq     uint64
	queue   taskQueue
	pending map[string]*task

	history     []TaskInfo // ring, oldest first
	historySize int

	routines map[string]*routineState

	wake    chan struct{}
	running atomic.Bool
	stopped bool
}

type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option { return func(s *Scheduler) { s.log = log } }

func WithBus(bus eventbus.Bus) Option { return func(s *Scheduler) { s.bus = bus } }

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocation sets the location routines are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithHistorySize bounds the number of terminal tasks kept for Snapshot.
func WithHistorySize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.historySize = n
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:       SystemClock{},
		loc:         time.Local,
		parser:      cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		pending:     map[string]*task{},
		historySize: defaultHistorySize,
		routines:    map[string]*routineState{},
		wake:        make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(logx.String("comp", "scheduler"))
	return s
}

// Enqueue registers cmd to fire once when trig elapses.
func (s *Scheduler) Enqueue(cmd command.Command, trig Trigger) (TaskInfo, error) {
	return s.enqueue(cmd, trig, "")
}

func (s *Scheduler) enqueue(cmd command.Command, trig Trigger, routine string) (TaskInfo, error) {
	if strings.TrimSpace(string(cmd)) == "" {
		return TaskInfo{}, ErrEmptyCommand
	}
	if err := trig.validate(); err != nil {
		return TaskInfo{}, err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return TaskInfo{}, ErrStopped
	}
	t := s.pushLocked(cmd, trig, routine)
	info := t.snapshot()
	earliest := s.queue.peek() == t
	s.mu.Unlock()

	if earliest {
		s.signal()
	}
	s.log.Debug("task enqueued",
		logx.String("id", info.ID),
		logx.String("command", string(info.Command)),
		logx.Time("fire_at", info.FireAt),
		logx.String("routine", routine),
	)
	s.publish(EventEnqueued, info)
	return info, nil
}

func (s *Scheduler) pushLocked(cmd command.Command, trig Trigger, routine string) *task {
	now := s.clock.Now()
	s.seq++
	t := &task{info: TaskInfo{
		ID:        uuid.NewString(),
		Seq:       s.seq,
		Command:   cmd,
		Trigger:   trig,
		Routine:   routine,
		CreatedAt: now,
		FireAt:    trig.fireAt(now),
	}}
	t.status.Store(int32(StatusPending))
	heap.Push(&s.queue, t)
	s.pending[t.info.ID] = t
	return t
}

// Cancel moves a pending task to cancelled. It reports false when the task
// is unknown or already terminal.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	t, ok := s.pending[id]
	if !ok || !t.cas(StatusPending, StatusCancelled) {
		s.mu.Unlock()
		return false
	}
	s.queue.remove(t)
	delete(s.pending, id)
	info := t.snapshot()
	s.recordLocked(info)
	// Cancelling a routine task skips one occurrence.
	var rearmed *TaskInfo
	if rs := s.routines[info.Routine]; rs != nil && rs.taskID == id {
		if next, ok := s.armLocked(rs, info.FireAt); ok {
			rearmed = &next
		} else {
			rs.taskID = ""
		}
	}
	s.mu.Unlock()

	s.signal()
	s.log.Info("task cancelled", logx.String("id", id), logx.String("command", string(info.Command)))
	s.publish(EventCancelled, info)
	if rearmed != nil {
		s.publish(EventEnqueued, *rearmed)
	}
	return true
}

// Get returns the task with id, pending or in recent history.
func (s *Scheduler) Get(id string) (TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[id]; ok {
		return t.snapshot(), true
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == id {
			return s.history[i], true
		}
	}
	return TaskInfo{}, false
}

// Pending returns pending tasks in firing order.
func (s *Scheduler) Pending() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Scheduler) pendingLocked() []TaskInfo {
	// Sort a copy; the heap keeps its own order and indexes.
	tmp := append([]*task(nil), s.queue...)
	sortTasks(tmp)
	out := make([]TaskInfo, 0, len(tmp))
	for _, t := range tmp {
		out = append(out, t.snapshot())
	}
	return out
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := make([]TaskInfo, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		hist = append(hist, s.history[i])
	}
	return Snapshot{Pending: s.pendingLocked(), History: hist}
}

// Run is the timer loop. It sleeps until the earliest fire time, fires every
// due task in (fire time, sequence) order and calls h once per fired task.
// It returns when ctx is done; later Enqueue calls fail with ErrStopped.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	if h == nil {
		h = func(context.Context, TaskInfo) (string, error) { return "", nil }
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	}()
	s.log.Debug("scheduler loop started")

	for {
		now := s.clock.Now()
		due, next, ok := s.collectDue(now)
		for _, t := range due {
			s.fire(ctx, h, t)
		}
		if len(due) > 0 {
			continue
		}

		var (
			tm     Timer
			timerC <-chan time.Time
		)
		if ok {
			tm = s.clock.NewTimer(next.Sub(now))
			timerC = tm.C()
		}
		select {
		case <-ctx.Done():
			if tm != nil {
				tm.Stop()
			}
			s.log.Debug("scheduler loop stopped")
			return nil
		case <-s.wake:
		case <-timerC:
		}
		if tm != nil {
			tm.Stop()
		}
	}
}

// collectDue transitions every due task to fired and returns them in order,
// along with the next fire time if any task is still pending.
func (s *Scheduler) collectDue(now time.Time) (due []*task, next time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		t := s.queue.peek()
		if t == nil {
			return due, time.Time{}, false
		}
		if t.info.FireAt.After(now) {
			return due, t.info.FireAt, true
		}
		heap.Pop(&s.queue)
		if !t.cas(StatusPending, StatusFired) {
			delete(s.pending, t.info.ID)
			continue
		}
		t.info.FiredAt = now
		due = append(due, t)
	}
}

func (s *Scheduler) fire(ctx context.Context, h Handler, t *task) {
	info := t.snapshot()
	s.log.Info("task fired",
		logx.String("id", info.ID),
		logx.String("command", string(info.Command)),
		logx.String("routine", info.Routine),
	)
	reply, err := s.call(ctx, h, info)

	s.mu.Lock()
	t.info.Reply = reply
	if err != nil {
		t.info.Error = err.Error()
	}
	info = t.snapshot()
	delete(s.pending, info.ID)
	s.recordLocked(info)
	rearmed := s.rearmLocked(info)
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("task failed", logx.String("id", info.ID), logx.String("command", string(info.Command)), logx.Err(err))
		s.publish(EventFailed, info)
	} else {
		s.publish(EventFired, info)
	}
	if rearmed != nil {
		s.publish(EventEnqueued, *rearmed)
	}
}

func (s *Scheduler) call(ctx context.Context, h Handler, info TaskInfo) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	return h(ctx, info)
}

func (s *Scheduler) recordLocked(info TaskInfo) {
	s.history = append(s.history, info)
	if over := len(s.history) - s.historySize; over > 0 {
		copy(s.history, s.history[over:])
		s.history = s.history[:s.historySize]
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) publish(typ string, info TaskInfo) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: s.clock.Now(), Data: info})
}
