package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"homecmd/internal/command"
	logx "homecmd/pkg/logx"
)

// Routine is a recurring command. Spec is a cron expression ("0 7 * * 1-5",
// "@daily", "@every 30m") or a plain interval ("90m", "01:30").
type Routine struct {
	Name    string
	Spec    string
	Command command.Command
}

type routineState struct {
	Routine
	schedule cron.Schedule
	taskID   string
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseSpec resolves a routine spec into a cron schedule.
//
// Input with whitespace or a leading '@' is cron; "HH:MM" and Go durations
// are fixed intervals. A "cron:" or "every:" prefix forces the kind.
func (s *Scheduler) ParseSpec(raw string) (cron.Schedule, error) {
	spec := strings.TrimSpace(raw)
	if spec == "" {
		return nil, fmt.Errorf("%w: schedule required", ErrInvalidTrigger)
	}
	low := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return s.parseCron(strings.TrimSpace(spec[len("cron:"):]))
	case strings.HasPrefix(low, "every:"):
		return parseEvery(strings.TrimSpace(spec[len("every:"):]))
	case strings.ContainsAny(spec, " \t") || strings.HasPrefix(spec, "@"):
		return s.parseCron(spec)
	}
	return parseEvery(spec)
}

func (s *Scheduler) parseCron(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: cron expression required", ErrInvalidTrigger)
	}
	sched, err := s.parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTrigger, expr, err)
	}
	return sched, nil
}

func parseEvery(v string) (cron.Schedule, error) {
	var d time.Duration
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return nil, fmt.Errorf("%w: invalid minutes in %q", ErrInvalidTrigger, v)
		}
		d = time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	} else {
		var err error
		d, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid schedule %q (use cron like '0 7 * * *', HH:MM like '02:30', or duration like '55m')", ErrInvalidTrigger, v)
		}
	}
	if d < time.Second {
		return nil, fmt.Errorf("%w: interval must be at least 1s", ErrInvalidTrigger)
	}
	return cron.Every(d), nil
}

// SetRoutines replaces the routine set. Pending tasks of removed or changed
// routines are cancelled and every routine gets one pending task for its
// next occurrence. Invalid routines are skipped and reported in the error.
func (s *Scheduler) SetRoutines(rs []Routine) error {
	var (
		next []*routineState
		errs []string
	)
	for _, r := range rs {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			errs = append(errs, "routine name required")
			continue
		}
		if strings.TrimSpace(string(r.Command)) == "" {
			errs = append(errs, fmt.Sprintf("routine %q: %v", name, ErrEmptyCommand))
			continue
		}
		sched, err := s.ParseSpec(r.Spec)
		if err != nil {
			errs = append(errs, fmt.Sprintf("routine %q: %v", name, err))
			continue
		}
		r.Name = name
		next = append(next, &routineState{Routine: r, schedule: sched})
	}

	var cancelled, enqueued []TaskInfo
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	for name, old := range s.routines {
		if t, ok := s.pending[old.taskID]; ok && t.cas(StatusPending, StatusCancelled) {
			s.queue.remove(t)
			delete(s.pending, t.info.ID)
			info := t.snapshot()
			s.recordLocked(info)
			cancelled = append(cancelled, info)
		}
		delete(s.routines, name)
	}
	now := s.clock.Now()
	for _, rs := range next {
		s.routines[rs.Name] = rs
		if info, ok := s.armLocked(rs, now); ok {
			enqueued = append(enqueued, info)
		}
	}
	s.mu.Unlock()

	s.signal()
	for _, info := range cancelled {
		s.publish(EventCancelled, info)
	}
	for _, info := range enqueued {
		s.log.Debug("routine armed", logx.String("routine", info.Routine), logx.Time("fire_at", info.FireAt))
		s.publish(EventEnqueued, info)
	}
	if len(errs) > 0 {
		return fmt.Errorf("scheduler: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Routines returns the configured routine names with their next fire time.
func (s *Scheduler) Routines() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.routines))
	for name, rs := range s.routines {
		var at time.Time
		if t, ok := s.pending[rs.taskID]; ok {
			at = t.info.FireAt
		}
		out[name] = at
	}
	return out
}

func (s *Scheduler) armLocked(rs *routineState, after time.Time) (TaskInfo, bool) {
	at := rs.schedule.Next(after.In(s.loc))
	if at.IsZero() {
		return TaskInfo{}, false
	}
	t := s.pushLocked(rs.Command, At(at), rs.Name)
	rs.taskID = t.info.ID
	return t.snapshot(), true
}

// rearmLocked schedules the next occurrence after a routine task fired.
func (s *Scheduler) rearmLocked(fired TaskInfo) *TaskInfo {
	if fired.Routine == "" || s.stopped {
		return nil
	}
	rs := s.routines[fired.Routine]
	if rs == nil || rs.taskID != fired.ID {
		return nil
	}
	after := fired.FireAt
	if now := s.clock.Now(); now.After(after) {
		after = now
	}
	info, ok := s.armLocked(rs, after)
	if !ok {
		rs.taskID = ""
		return nil
	}
	return &info
}

type panicError struct{ v any }

func (e panicError) Error() string { return fmt.Sprintf("handler panic: %v", e.v) }
