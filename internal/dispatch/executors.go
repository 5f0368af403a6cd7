package dispatch

import (
	"context"
	"time"

	"homecmd/internal/command"
	"homecmd/internal/scheduler"
)

// Executor interfaces. Each call returns a short reply sentence.

type Reminders interface {
	AddReminder(ctx context.Context, text string) (string, error)
	ListReminders(ctx context.Context) (string, error)
	DeleteReminder(ctx context.Context, id int) (string, error)
	DeleteReminderText(ctx context.Context, text string) (string, error)
}

type Timer interface {
	SetTimer(ctx context.Context, d time.Duration) (string, error)
	CancelTimer(ctx context.Context) (string, error)
}

type Lights interface {
	SetLights(ctx context.Context, on bool) (string, error)
}

type Music interface {
	Play(ctx context.Context, genre string) (string, error)
	Shuffle(ctx context.Context, genre string) (string, error)
	Stop(ctx context.Context) (string, error)
	Next(ctx context.Context) (string, error)
	Skip(ctx context.Context) (string, error)
}

type Volume interface {
	SetVolume(ctx context.Context, level int) (string, error)
	StepVolume(ctx context.Context, up bool) (string, error)
}

type Clock interface {
	TellTime(ctx context.Context) (string, error)
	TellDate(ctx context.Context) (string, error)
}

type Jokes interface {
	Joke(ctx context.Context) (string, error)
}

// Responder answers general questions.
type Responder interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Enqueuer accepts deferred commands. *scheduler.Scheduler implements it.
type Enqueuer interface {
	Enqueue(cmd command.Command, trig scheduler.Trigger) (scheduler.TaskInfo, error)
}

// Executors is the set of collaborators a Dispatcher calls. Nil members
// make the matching commands fail with an ExecutorError.
type Executors struct {
	Reminders Reminders
	Timer     Timer
	Lights    Lights
	Music     Music
	Volume    Volume
	Clock     Clock
	Jokes     Jokes
	Query     Responder
}
