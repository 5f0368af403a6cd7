package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homecmd/internal/command"
	"homecmd/internal/scheduler"
)

var now = time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)

// recorder implements every executor interface and logs each call.
type recorder struct {
	calls []string
	fail  error
}

func (r *recorder) do(format string, args ...any) (string, error) {
	call := fmt.Sprintf(format, args...)
	r.calls = append(r.calls, call)
	if r.fail != nil {
		return "", r.fail
	}
	return "done: " + call, nil
}

func (r *recorder) AddReminder(_ context.Context, text string) (string, error) {
	return r.do("add reminder %s", text)
}
func (r *recorder) ListReminders(context.Context) (string, error) { return r.do("list reminders") }
func (r *recorder) DeleteReminder(_ context.Context, id int) (string, error) {
	return r.do("delete reminder #%d", id)
}
func (r *recorder) DeleteReminderText(_ context.Context, text string) (string, error) {
	return r.do("delete reminder %q", text)
}
func (r *recorder) SetTimer(_ context.Context, d time.Duration) (string, error) {
	return r.do("timer %s", d)
}
func (r *recorder) CancelTimer(context.Context) (string, error) { return r.do("cancel timer") }
func (r *recorder) SetLights(_ context.Context, on bool) (string, error) {
	return r.do("lights %t", on)
}
func (r *recorder) Play(_ context.Context, genre string) (string, error) {
	return r.do("play %q", genre)
}
func (r *recorder) Shuffle(_ context.Context, genre string) (string, error) {
	return r.do("shuffle %q", genre)
}
func (r *recorder) Stop(context.Context) (string, error) { return r.do("stop") }
func (r *recorder) Next(context.Context) (string, error) { return r.do("next") }
func (r *recorder) Skip(context.Context) (string, error) { return r.do("skip") }
func (r *recorder) SetVolume(_ context.Context, level int) (string, error) {
	return r.do("volume %d", level)
}
func (r *recorder) StepVolume(_ context.Context, up bool) (string, error) {
	return r.do("volume up=%t", up)
}
func (r *recorder) TellTime(context.Context) (string, error) { return r.do("time") }
func (r *recorder) TellDate(context.Context) (string, error) { return r.do("date") }
func (r *recorder) Joke(context.Context) (string, error)     { return r.do("joke") }
func (r *recorder) Answer(_ context.Context, q string) (string, error) {
	r.calls = append(r.calls, "answer "+q)
	return "Paris, of course!", r.fail
}

func (r *recorder) executors() Executors {
	return Executors{Reminders: r, Timer: r, Lights: r, Music: r, Volume: r, Clock: r, Jokes: r, Query: r}
}

type fakeEnqueuer struct {
	cmds  []command.Command
	trigs []scheduler.Trigger
	err   error
}

func (f *fakeEnqueuer) Enqueue(cmd command.Command, trig scheduler.Trigger) (scheduler.TaskInfo, error) {
	if f.err != nil {
		return scheduler.TaskInfo{}, f.err
	}
	f.cmds = append(f.cmds, cmd)
	f.trigs = append(f.trigs, trig)
	fireAt := trig.At
	if fireAt.IsZero() {
		fireAt = now.Add(trig.Delay)
	}
	return scheduler.TaskInfo{ID: "task-1", Command: cmd, Trigger: trig, FireAt: fireAt, CreatedAt: now}, nil
}

func newTestDispatcher(r *recorder, q Enqueuer) *Dispatcher {
	return New(r.executors(), q, WithLocation(time.UTC), WithNow(func() time.Time { return now }))
}

func TestDispatchActions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		cmd    command.Command
		cat    Category
		op     Op
		params Params
		call   string
	}{
		{name: "reminder add", cmd: "add reminder take out the trash at 8pm", cat: CategoryReminder, op: OpAdd, params: Params{Text: "take out the trash at 8pm"}, call: "add reminder take out the trash at 8pm"},
		{name: "reminder list", cmd: "list reminders", cat: CategoryReminder, op: OpList, call: "list reminders"},
		{name: "reminder delete id", cmd: "delete reminder 3", cat: CategoryReminder, op: OpDelete, params: Params{ID: 3, ByID: true}, call: "delete reminder #3"},
		{name: "reminder delete negative id", cmd: "delete reminder -1", cat: CategoryReminder, op: OpDelete, params: Params{ID: -1, ByID: true}, call: "delete reminder #-1"},
		{name: "reminder delete text", cmd: "delete reminder buy milk", cat: CategoryReminder, op: OpDelete, params: Params{Text: "buy milk"}, call: `delete reminder "buy milk"`},
		{name: "timer", cmd: "set timer for 2 minutes", cat: CategoryTimer, op: OpSet, params: Params{Duration: 2 * time.Minute}, call: "timer 2m0s"},
		{name: "timer cancel", cmd: "cancel timer", cat: CategoryTimer, op: OpCancel, call: "cancel timer"},
		{name: "lights on", cmd: "turn on the lights", cat: CategoryLights, op: OpOn, call: "lights true"},
		{name: "lights off", cmd: "turn off the lights", cat: CategoryLights, op: OpOff, call: "lights false"},
		{name: "play genre", cmd: "play jazz music", cat: CategoryMusic, op: OpPlay, params: Params{Genre: "jazz", Mode: ModePlay}, call: `play "jazz"`},
		{name: "play any", cmd: "play music", cat: CategoryMusic, op: OpPlay, params: Params{Mode: ModePlay}, call: `play ""`},
		{name: "shuffle genre", cmd: "shuffle jazz", cat: CategoryMusic, op: OpShuffle, params: Params{Genre: "jazz", Mode: ModeShuffle}, call: `shuffle "jazz"`},
		{name: "shuffle all", cmd: "shuffle all music", cat: CategoryMusic, op: OpShuffle, params: Params{Mode: ModeShuffle}, call: `shuffle ""`},
		{name: "stop", cmd: "stop music", cat: CategoryMusic, op: OpStop, call: "stop"},
		{name: "next", cmd: "next song", cat: CategoryMusic, op: OpNext, call: "next"},
		{name: "skip", cmd: "skip song", cat: CategoryMusic, op: OpSkip, call: "skip"},
		{name: "volume set", cmd: "set volume to 50%", cat: CategoryVolume, op: OpSet, params: Params{Level: 50}, call: "volume 50"},
		{name: "volume up", cmd: "increase volume", cat: CategoryVolume, op: OpUp, call: "volume up=true"},
		{name: "volume down", cmd: "decrease volume", cat: CategoryVolume, op: OpDown, call: "volume up=false"},
		{name: "time", cmd: "what is the time", cat: CategoryClock, op: OpTime, call: "time"},
		{name: "date", cmd: "what is the date", cat: CategoryClock, op: OpDate, call: "date"},
		{name: "joke", cmd: "tell me a joke", cat: CategoryJoke, op: OpTell, call: "joke"},
		{name: "query", cmd: "general query: what is the capital of france", cat: CategoryQuery, op: OpAsk, params: Params{Text: "what is the capital of france"}, call: "answer what is the capital of france"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &recorder{}
			d := newTestDispatcher(r, &fakeEnqueuer{})
			res, err := d.Dispatch(context.Background(), tt.cmd)
			require.NoError(t, err)
			require.Equal(t, tt.cat, res.Action.Category)
			require.Equal(t, tt.op, res.Action.Op)
			require.Equal(t, tt.params, res.Action.Params)
			require.Equal(t, []string{tt.call}, r.calls)
			require.Nil(t, res.Task)
		})
	}
}

func TestQueryAnswerIsRelayedVerbatim(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	d := newTestDispatcher(r, nil)
	res, err := d.Dispatch(context.Background(), command.Normalize("general query: What is the capital of France?"))
	require.NoError(t, err)
	require.Equal(t, "Paris, of course!", res.Reply)
}

func TestDispatchSchedule(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		task command.Command
		trig scheduler.Trigger
	}{
		{name: "delay", in: "schedule turning off the lights in 5 minutes", task: "turn off the lights", trig: scheduler.In(300 * time.Second)},
		{name: "later today", in: "schedule play jazz music at 7:30pm", task: "play jazz music", trig: scheduler.At(time.Date(2026, time.January, 5, 19, 30, 0, 0, time.UTC))},
		{name: "already passed", in: "schedule turn on the lights at 7am", task: "turn on the lights", trig: scheduler.At(time.Date(2026, time.January, 6, 7, 0, 0, 0, time.UTC))},
		{name: "exactly now rolls over", in: "schedule tell me a joke at 8am", task: "tell me a joke", trig: scheduler.At(time.Date(2026, time.January, 6, 8, 0, 0, 0, time.UTC))},
		{name: "inner reminder", in: "schedule remind me to stretch in 1 hour", task: "add reminder stretch", trig: scheduler.In(time.Hour)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &recorder{}
			q := &fakeEnqueuer{}
			d := newTestDispatcher(r, q)

			res, err := d.Dispatch(context.Background(), command.Normalize(tt.in))
			require.NoError(t, err)
			require.Equal(t, CategorySchedule, res.Action.Category)
			require.Equal(t, tt.task, res.Action.Params.Task)
			require.Equal(t, []command.Command{tt.task}, q.cmds)
			require.Equal(t, []scheduler.Trigger{tt.trig}, q.trigs)
			require.NotNil(t, res.Task)
			require.Contains(t, res.Reply, string(tt.task))
			require.Empty(t, r.calls, "nothing runs before the task fires")
		})
	}
}

func TestDispatchErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cmd  string
		want error
	}{
		{name: "volume above range", cmd: "set volume to 150%", want: ErrInvalidVolume},
		{name: "volume below range", cmd: "set volume to -5%", want: ErrInvalidVolume},
		{name: "zero duration", cmd: "set timer for 0 minutes", want: ErrInvalidDuration},
		{name: "unknown unit", cmd: "set timer for 5 fortnights", want: ErrInvalidDuration},
		{name: "words for number", cmd: "set timer for five minutes", want: ErrInvalidDuration},
		{name: "schedule gibberish", cmd: "schedule asdkjasd in 5 minutes", want: ErrUnschedulableTask},
		{name: "schedule nested", cmd: "schedule schedule lights on in 5 minutes at 8pm", want: ErrUnschedulableTask},
		{name: "schedule bad hour", cmd: "schedule turn on the lights at 13pm", want: ErrInvalidTime},
		{name: "schedule bad clock", cmd: "schedule turn on the lights at noon", want: ErrInvalidTime},
		{name: "schedule bad delay", cmd: "schedule turn on the lights in 0 seconds", want: ErrInvalidDuration},
		{name: "schedule bad inner volume", cmd: "schedule set volume to 150% in 5 minutes", want: ErrInvalidVolume},
		{name: "schedule bad inner volume is unschedulable", cmd: "schedule set volume to 150% in 5 minutes", want: ErrUnschedulableTask},
		{name: "schedule bad inner timer", cmd: "schedule set timer for 0 minutes in 5 minutes", want: ErrInvalidDuration},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &recorder{}
			q := &fakeEnqueuer{}
			d := newTestDispatcher(r, q)
			_, err := d.Dispatch(context.Background(), command.Normalize(tt.cmd))
			require.ErrorIs(t, err, tt.want)
			require.NotErrorIs(t, err, ErrExecutorFailure)
			require.Empty(t, r.calls, "no executor invoked")
			require.Empty(t, q.cmds, "nothing scheduled")
		})
	}
}

func TestDispatchFallback(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	d := newTestDispatcher(r, nil)
	res, err := d.Dispatch(context.Background(), command.Normalize("asdkjasd"))
	require.NoError(t, err)
	require.Equal(t, CategoryFallback, res.Action.Category)
	require.Equal(t, command.ReasonNoMatch, res.Reply)
	require.Empty(t, r.calls)
}

func TestExecutorFailure(t *testing.T) {
	t.Parallel()
	offline := errors.New("bridge offline")
	r := &recorder{fail: offline}
	d := newTestDispatcher(r, nil)

	_, err := d.Dispatch(context.Background(), "turn on the lights")
	require.ErrorIs(t, err, ErrExecutorFailure)
	require.ErrorIs(t, err, offline)

	var ee *ExecutorError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, CategoryLights, ee.Category)
	require.Equal(t, OpOn, ee.Op)
	require.Len(t, r.calls, 1, "no retry")
}

func TestMissingExecutor(t *testing.T) {
	t.Parallel()
	d := New(Executors{}, nil)
	for _, cmd := range []command.Command{"tell me a joke", "schedule next song in 1 minute"} {
		_, err := d.Dispatch(context.Background(), cmd)
		require.ErrorIs(t, err, ErrExecutorFailure, "command %q", cmd)
	}
}

func TestSchedulerFailureIsExecutorFailure(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(&recorder{}, &fakeEnqueuer{err: scheduler.ErrStopped})
	_, err := d.Dispatch(context.Background(), "schedule next song in 1 minute")
	require.ErrorIs(t, err, ErrExecutorFailure)
	require.ErrorIs(t, err, scheduler.ErrStopped)
}

func TestFire(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	d := newTestDispatcher(r, nil)
	reply, err := d.Fire(context.Background(), scheduler.TaskInfo{ID: "t1", Command: "turn off the lights"})
	require.NoError(t, err)
	require.Equal(t, "done: lights false", reply)

	r.fail = errors.New("boom")
	_, err = d.Fire(context.Background(), scheduler.TaskInfo{ID: "t2", Command: "next song"})
	require.ErrorIs(t, err, ErrExecutorFailure)
}

func TestResolveHasNoSideEffects(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	q := &fakeEnqueuer{}
	d := newTestDispatcher(r, q)
	a, err := d.Resolve("schedule turn off the lights in 5 minutes")
	require.NoError(t, err)
	require.Equal(t, "schedule.enqueue", a.String())
	require.Empty(t, r.calls)
	require.Empty(t, q.cmds)
}
