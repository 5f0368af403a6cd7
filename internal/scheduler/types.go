package scheduler

import (
	"context"
	"errors"
	"time"

	"homecmd/internal/command"
)

var (
	ErrEmptyCommand   = errors.New("scheduler: empty command")
	ErrInvalidTrigger = errors.New("scheduler: invalid trigger")
	ErrStopped        = errors.New("scheduler: stopped")
	ErrRunning        = errors.New("scheduler: already running")
)

// Event types published on the bus. Data is a TaskInfo.
const (
	EventEnqueued  = "task.enqueued"
	EventFired     = "task.fired"
	EventFailed    = "task.failed"
	EventCancelled = "task.cancelled"
)

// Status is the lifecycle state of a task. Fired and Cancelled are terminal.
type Status int32

const (
	StatusPending Status = iota
	StatusFired
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFired:
		return "fired"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Trigger is either a delay from enqueue time or an absolute time.
type Trigger struct {
	Delay time.Duration
	At    time.Time
}

// In returns a delay trigger.
func In(d time.Duration) Trigger { return Trigger{Delay: d} }

// At returns an absolute-time trigger.
func At(t time.Time) Trigger { return Trigger{At: t} }

func (t Trigger) validate() error {
	hasAt := !t.At.IsZero()
	switch {
	case hasAt && t.Delay != 0:
		return ErrInvalidTrigger
	case !hasAt && t.Delay <= 0:
		return ErrInvalidTrigger
	}
	return nil
}

func (t Trigger) fireAt(now time.Time) time.Time {
	if !t.At.IsZero() {
		return t.At
	}
	return now.Add(t.Delay)
}

func (t Trigger) String() string {
	if !t.At.IsZero() {
		return "at " + t.At.Format(time.RFC3339)
	}
	return "in " + t.Delay.String()
}

// TaskInfo is a point-in-time copy of a scheduled task.
type TaskInfo struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Command   command.Command `json:"command"`
	Trigger   Trigger         `json:"-"`
	Routine   string          `json:"routine,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	FireAt    time.Time       `json:"fire_at"`
	Status    Status          `json:"status"`
	FiredAt   time.Time       `json:"fired_at,omitempty"`
	Reply     string          `json:"reply,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Handler runs the wrapped command of a fired task and returns its reply.
type Handler func(ctx context.Context, t TaskInfo) (string, error)

// Snapshot lists pending tasks in firing order and terminal tasks newest first.
type Snapshot struct {
	Pending []TaskInfo `json:"pending"`
	History []TaskInfo `json:"history"`
}
