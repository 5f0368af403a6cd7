// Package dispatch resolves canonical commands into typed actions and runs
// them against the configured executors or the scheduler.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homecmd/internal/command"
	"homecmd/internal/scheduler"
	logx "homecmd/pkg/logx"
)

// Result is the outcome of a dispatched command.
type Result struct {
	Action Action
	Reply  string
	// Task is set when the command was handed to the scheduler.
	Task *scheduler.TaskInfo
}

type Dispatcher struct {
	exec  Executors
	sched Enqueuer
	log   logx.Logger
	loc   *time.Location
	now   func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(log logx.Logger) Option { return func(d *Dispatcher) { d.log = log } }

// WithLocation sets the location absolute times ("at 8pm") resolve in.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithNow replaces the time source used for absolute-time triggers.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func New(exec Executors, sched Enqueuer, opts ...Option) *Dispatcher {
	d := &Dispatcher{exec: exec, sched: sched, loc: time.Local, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.With(logx.String("comp", "dispatch"))
	return d
}

// Resolve parses cmd into an action without side effects.
func (d *Dispatcher) Resolve(cmd command.Command) (Action, error) {
	return resolve(command.Parse(string(cmd)), d.now(), d.loc)
}

// Dispatch resolves cmd and runs it. Resolve errors are returned before any
// executor is called; executor errors come back as *ExecutorError.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) (Result, error) {
	act, err := d.Resolve(cmd)
	res := Result{Action: act}
	if err != nil {
		d.log.Debug("command rejected", logx.String("command", string(cmd)), logx.Err(err))
		return res, err
	}
	d.log.Debug("dispatching", logx.String("command", string(act.Command)), logx.String("action", act.String()))

	res.Reply, res.Task, err = d.invoke(ctx, act)
	if err != nil {
		var ee *ExecutorError
		if !errors.As(err, &ee) {
			err = &ExecutorError{Category: act.Category, Op: act.Op, Err: err}
		}
		d.log.Warn("executor failed", logx.String("command", string(act.Command)), logx.String("action", act.String()), logx.Err(err))
		return res, err
	}
	return res, nil
}

// Fire runs the command wrapped by a scheduled task. It has the
// scheduler.Handler signature.
func (d *Dispatcher) Fire(ctx context.Context, t scheduler.TaskInfo) (string, error) {
	res, err := d.Dispatch(ctx, t.Command)
	if err != nil {
		d.log.Error("scheduled command failed",
			logx.String("task", t.ID),
			logx.String("command", string(t.Command)),
			logx.String("routine", t.Routine),
			logx.Err(err),
		)
		return res.Reply, err
	}
	return res.Reply, nil
}

func (d *Dispatcher) invoke(ctx context.Context, a Action) (string, *scheduler.TaskInfo, error) {
	p := a.Params
	switch a.Category {
	case CategoryReminder:
		r := d.exec.Reminders
		if r == nil {
			return "", nil, errNoExecutor
		}
		switch a.Op {
		case OpAdd:
			return wrap(r.AddReminder(ctx, p.Text))
		case OpList:
			return wrap(r.ListReminders(ctx))
		case OpDelete:
			if p.ByID {
				return wrap(r.DeleteReminder(ctx, p.ID))
			}
			return wrap(r.DeleteReminderText(ctx, p.Text))
		}

	case CategoryTimer:
		t := d.exec.Timer
		if t == nil {
			return "", nil, errNoExecutor
		}
		if a.Op == OpSet {
			return wrap(t.SetTimer(ctx, p.Duration))
		}
		return wrap(t.CancelTimer(ctx))

	case CategoryLights:
		if d.exec.Lights == nil {
			return "", nil, errNoExecutor
		}
		return wrap(d.exec.Lights.SetLights(ctx, a.Op == OpOn))

	case CategoryMusic:
		m := d.exec.Music
		if m == nil {
			return "", nil, errNoExecutor
		}
		switch a.Op {
		case OpPlay:
			return wrap(m.Play(ctx, p.Genre))
		case OpShuffle:
			return wrap(m.Shuffle(ctx, p.Genre))
		case OpStop:
			return wrap(m.Stop(ctx))
		case OpNext:
			return wrap(m.Next(ctx))
		case OpSkip:
			return wrap(m.Skip(ctx))
		}

	case CategoryVolume:
		v := d.exec.Volume
		if v == nil {
			return "", nil, errNoExecutor
		}
		if a.Op == OpSet {
			return wrap(v.SetVolume(ctx, p.Level))
		}
		return wrap(v.StepVolume(ctx, a.Op == OpUp))

	case CategoryClock:
		c := d.exec.Clock
		if c == nil {
			return "", nil, errNoExecutor
		}
		if a.Op == OpDate {
			return wrap(c.TellDate(ctx))
		}
		return wrap(c.TellTime(ctx))

	case CategoryJoke:
		if d.exec.Jokes == nil {
			return "", nil, errNoExecutor
		}
		return wrap(d.exec.Jokes.Joke(ctx))

	case CategoryQuery:
		if d.exec.Query == nil {
			return "", nil, errNoExecutor
		}
		return wrap(d.exec.Query.Answer(ctx, p.Text))

	case CategorySchedule:
		if d.sched == nil {
			return "", nil, errNoExecutor
		}
		info, err := d.sched.Enqueue(p.Task, p.Trigger)
		if err != nil {
			return "", nil, err
		}
		return d.scheduledReply(info), &info, nil

	case CategoryFallback:
		return p.Text, nil, nil
	}
	return "", nil, fmt.Errorf("unsupported action %s", a)
}

func wrap(reply string, err error) (string, *scheduler.TaskInfo, error) {
	return reply, nil, err
}

func (d *Dispatcher) scheduledReply(info scheduler.TaskInfo) string {
	at := info.FireAt.In(d.loc)
	layout := "03:04 PM"
	if !sameDay(at, d.now().In(d.loc)) {
		layout = "Mon 03:04 PM"
	}
	return fmt.Sprintf("Okay! Scheduled %q for %s.", string(info.Command), at.Format(layout))
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
