package dispatch

import (
	"fmt"
	"strconv"
	"time"

	"homecmd/internal/command"
	"homecmd/internal/scheduler"
)

type Category string

const (
	CategoryReminder Category = "reminder"
	CategoryTimer    Category = "timer"
	CategoryLights   Category = "lights"
	CategoryMusic    Category = "music"
	CategoryVolume   Category = "volume"
	CategoryClock    Category = "clock"
	CategoryJoke     Category = "joke"
	CategorySchedule Category = "schedule"
	CategoryQuery    Category = "query"
	CategoryFallback Category = "fallback"
)

type Op string

const (
	OpAdd     Op = "add"
	OpList    Op = "list"
	OpDelete  Op = "delete"
	OpSet     Op = "set"
	OpCancel  Op = "cancel"
	OpOn      Op = "on"
	OpOff     Op = "off"
	OpPlay    Op = "play"
	OpStop    Op = "stop"
	OpShuffle Op = "shuffle"
	OpNext    Op = "next"
	OpSkip    Op = "skip"
	OpUp      Op = "up"
	OpDown    Op = "down"
	OpTime    Op = "time"
	OpDate    Op = "date"
	OpTell    Op = "tell"
	OpEnqueue Op = "enqueue"
	OpAsk     Op = "ask"
	OpExplain Op = "explain"
)

// Music modes.
const (
	ModePlay    = "play"
	ModeShuffle = "shuffle"
)

// Params holds the typed arguments of an action. Only the fields relevant
// to the action's category are set.
type Params struct {
	// Text is the reminder text, the delete-by-text reference, the query
	// question or the fallback reason.
	Text string
	// ID is the reminder id for deletes when ByID is set, otherwise the
	// delete goes by Text.
	ID       int
	ByID     bool
	Duration time.Duration
	Genre    string // "" is any genre
	Mode     string
	Level    int
	Task     command.Command
	Trigger  scheduler.Trigger
}

// Action is a resolved canonical command.
type Action struct {
	Category Category
	Op       Op
	Command  command.Command
	Params   Params
}

func (a Action) String() string { return fmt.Sprintf("%s.%s", a.Category, a.Op) }

// resolve maps a parsed command to an action. now and loc anchor
// absolute-time triggers.
func resolve(m command.Match, now time.Time, loc *time.Location) (Action, error) {
	a := Action{Command: m.Command}
	set := func(c Category, op Op) { a.Category, a.Op = c, op }

	switch m.Template {
	case command.TemplateReminderAdd:
		set(CategoryReminder, OpAdd)
		a.Params.Text = m.Arg(0)
	case command.TemplateReminderList:
		set(CategoryReminder, OpList)
	case command.TemplateReminderDelete:
		set(CategoryReminder, OpDelete)
		if id, err := strconv.Atoi(m.Arg(0)); err == nil {
			a.Params.ID, a.Params.ByID = id, true
		} else {
			a.Params.Text = m.Arg(0)
		}
	case command.TemplateTimerSet:
		set(CategoryTimer, OpSet)
		d, err := ParseDuration(m.Arg(0))
		if err != nil {
			return a, err
		}
		a.Params.Duration = d
	case command.TemplateTimerCancel:
		set(CategoryTimer, OpCancel)
	case command.TemplateLightsOn:
		set(CategoryLights, OpOn)
	case command.TemplateLightsOff:
		set(CategoryLights, OpOff)
	case command.TemplateMusicPlay:
		set(CategoryMusic, OpPlay)
		a.Params.Genre = m.Arg(0)
		a.Params.Mode = ModePlay
	case command.TemplateMusicShuffle:
		set(CategoryMusic, OpShuffle)
		if g := m.Arg(0); g != command.ShuffleAll {
			a.Params.Genre = g
		}
		a.Params.Mode = ModeShuffle
	case command.TemplateMusicStop:
		set(CategoryMusic, OpStop)
	case command.TemplateMusicNext:
		set(CategoryMusic, OpNext)
	case command.TemplateMusicSkip:
		set(CategoryMusic, OpSkip)
	case command.TemplateVolumeSet:
		set(CategoryVolume, OpSet)
		lvl, err := ParseVolume(m.Arg(0))
		if err != nil {
			return a, err
		}
		a.Params.Level = lvl
	case command.TemplateVolumeUp:
		set(CategoryVolume, OpUp)
	case command.TemplateVolumeDown:
		set(CategoryVolume, OpDown)
	case command.TemplateTime:
		set(CategoryClock, OpTime)
	case command.TemplateDate:
		set(CategoryClock, OpDate)
	case command.TemplateJoke:
		set(CategoryJoke, OpTell)
	case command.TemplateQuery:
		set(CategoryQuery, OpAsk)
		a.Params.Text = m.Arg(0)
	case command.TemplateSchedule:
		set(CategorySchedule, OpEnqueue)
		return resolveSchedule(a, m, now, loc)
	default:
		set(CategoryFallback, OpExplain)
		a.Params.Text = m.Arg(0)
	}
	return a, nil
}

func resolveSchedule(a Action, m command.Match, now time.Time, loc *time.Location) (Action, error) {
	text, kind, trigger := m.Arg(0), m.Arg(1), m.Arg(2)

	inner := command.Parse(text)
	switch inner.Template {
	case command.TemplateFallback:
		return a, fmt.Errorf("%w: %q %s", ErrUnschedulableTask, text, command.FallbackReason(inner.Command))
	case command.TemplateSchedule:
		return a, fmt.Errorf("%w: %q is itself a schedule", ErrUnschedulableTask, text)
	}
	// Parameters are checked now so a bad volume or duration is reported
	// at enqueue time rather than when the task fires.
	if _, err := resolve(inner, now, loc); err != nil {
		return a, fmt.Errorf("%w: %q: %w", ErrUnschedulableTask, text, err)
	}
	a.Params.Task = inner.Command

	switch kind {
	case "in":
		d, err := ParseDuration(trigger)
		if err != nil {
			return a, err
		}
		a.Params.Duration = d
		a.Params.Trigger = scheduler.In(d)
	case "at":
		hh, mm, err := ParseClock(trigger)
		if err != nil {
			return a, err
		}
		a.Params.Trigger = scheduler.At(NextOccurrence(now, hh, mm, loc))
	default:
		return a, fmt.Errorf("%w: unknown trigger %q", ErrUnschedulableTask, kind)
	}
	return a, nil
}
