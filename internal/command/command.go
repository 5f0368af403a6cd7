// Package command normalizes free-text utterances into canonical command
// strings.
//
// A canonical command is lowercase, single-line, carries no backticks or
// double quotes and no surrounding punctuation, and matches exactly one
// Template. Anything that matches no template becomes the fallback
// "given: <reason>". Normalization is total: every input yields a Command.
package command

import (
	"strings"
)

// Command is a canonical command string.
type Command string

func (c Command) String() string { return string(c) }

// Template names one canonical command form.
type Template string

const (
	TemplateReminderAdd    Template = "reminder.add"
	TemplateReminderList   Template = "reminder.list"
	TemplateReminderDelete Template = "reminder.delete"
	TemplateTimerSet       Template = "timer.set"
	TemplateTimerCancel    Template = "timer.cancel"
	TemplateLightsOn       Template = "lights.on"
	TemplateLightsOff      Template = "lights.off"
	TemplateMusicPlay      Template = "music.play"
	TemplateMusicStop      Template = "music.stop"
	TemplateMusicShuffle   Template = "music.shuffle"
	TemplateMusicNext      Template = "music.next"
	TemplateMusicSkip      Template = "music.skip"
	TemplateVolumeSet      Template = "volume.set"
	TemplateVolumeUp       Template = "volume.up"
	TemplateVolumeDown     Template = "volume.down"
	TemplateTime           Template = "clock.time"
	TemplateDate           Template = "clock.date"
	TemplateJoke           Template = "joke"
	TemplateSchedule       Template = "schedule"
	TemplateQuery          Template = "query"
	TemplateFallback       Template = "fallback"
)

// Fallback reasons.
const (
	ReasonNoMatch  = "did not match any known commands"
	ReasonEmpty    = "empty command"
	ReasonSchedule = "schedule needs a trigger like in 5 minutes or at 8pm"
)

// ShuffleAll is the shuffle argument meaning "no genre filter".
const ShuffleAll = "all music"

const fallbackPrefix = "given: "

// Match is the outcome of parsing one utterance.
//
// Args holds the template captures in template order:
//
//	reminder.add     [text]
//	reminder.delete  [text-or-id]
//	timer.set        [duration]
//	music.play       [genre] ("" for no genre)
//	music.shuffle    [genre or ShuffleAll]
//	volume.set       [level]
//	schedule         [task, "in"|"at", trigger]
//	query            [question]
//	fallback         [reason]
type Match struct {
	Template Template
	Args     []string
	Command  Command
}

// Arg returns the i-th capture or "".
func (m Match) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// IsFallback reports whether c is a fallback ("given: ...") command.
func IsFallback(c Command) bool {
	return strings.HasPrefix(string(c), fallbackPrefix)
}

// Fallback builds the fallback command for reason.
func Fallback(reason string) Command {
	return render(TemplateFallback, []string{reason})
}

// FallbackReason returns the reason part of a fallback command.
func FallbackReason(c Command) string {
	return strings.TrimPrefix(string(c), fallbackPrefix)
}

func fallbackMatch(reason string) Match {
	args := []string{reason}
	return Match{Template: TemplateFallback, Args: args, Command: render(TemplateFallback, args)}
}

// render formats the canonical string for t. Args must already be clean.
func render(t Template, args []string) Command {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	var s string
	switch t {
	case TemplateReminderAdd:
		s = "add reminder " + arg(0)
	case TemplateReminderList:
		s = "list reminders"
	case TemplateReminderDelete:
		s = "delete reminder " + arg(0)
	case TemplateTimerSet:
		s = "set timer for " + arg(0)
	case TemplateTimerCancel:
		s = "cancel timer"
	case TemplateLightsOn:
		s = "turn on the lights"
	case TemplateLightsOff:
		s = "turn off the lights"
	case TemplateMusicPlay:
		if g := arg(0); g != "" {
			s = "play " + g + " music"
		} else {
			s = "play music"
		}
	case TemplateMusicStop:
		s = "stop music"
	case TemplateMusicShuffle:
		s = "shuffle " + arg(0)
	case TemplateMusicNext:
		s = "next song"
	case TemplateMusicSkip:
		s = "skip song"
	case TemplateVolumeSet:
		s = "set volume to " + arg(0) + "%"
	case TemplateVolumeUp:
		s = "increase volume"
	case TemplateVolumeDown:
		s = "decrease volume"
	case TemplateTime:
		s = "what is the time"
	case TemplateDate:
		s = "what is the date"
	case TemplateJoke:
		s = "tell me a joke"
	case TemplateSchedule:
		s = "schedule " + arg(0) + " " + arg(1) + " " + arg(2)
	case TemplateQuery:
		s = "general query: " + arg(0)
	default:
		s = fallbackPrefix + arg(0)
	}
	return Command(Clean(s))
}
