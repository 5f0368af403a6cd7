package command

import (
	"regexp"
	"strings"
)

// politeness words dropped before matching.
var (
	rePoliteHead = regexp.MustCompile(`^(?:please|hey|ok|okay|can you|could you|would you)(?: please)?[ ,]+`)
	rePoliteTail = regexp.MustCompile(`[ ,]+(?:please|thanks|thank you)$`)
)

func stripPoliteness(s string) string {
	s = rePoliteHead.ReplaceAllString(s, "")
	s = rePoliteTail.ReplaceAllString(s, "")
	return s
}

func group(t Template, prefix string, build func([]string) ([]string, bool), patterns ...string) []Rule {
	out := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, Rule{
			Template: t,
			Prefix:   prefix,
			Pattern:  regexp.MustCompile(p),
			Build:    build,
		})
	}
	return out
}

func none([]string) ([]string, bool) { return nil, true }

func lightsPatterns(state string) []string {
	return []string{
		`^(?:turn|turning|switch|switching) ` + state + ` (?:all )?(?:of )?(?:the )?lights?$`,
		`^(?:turn|turning|switch|switching) (?:all )?(?:of )?(?:the )?lights? ` + state + `$`,
		`^lights? ` + state + `$`,
	}
}

func buildPlay(sub []string) ([]string, bool) {
	g := strings.TrimSpace(strings.TrimSuffix(sub[1], "music"))
	if strings.HasSuffix(g, "song") || strings.HasSuffix(g, "track") {
		return nil, false
	}
	return []string{g}, true
}

func buildShuffle(sub []string) ([]string, bool) {
	g := sub[1]
	for _, suffix := range []string{"music", "songs"} {
		g = strings.TrimSpace(strings.TrimSuffix(g, suffix))
	}
	switch g {
	case "", "all", "everything", "all my", "it", "my":
		return []string{ShuffleAll}, true
	}
	return []string{g}, true
}

func buildSchedule(sub []string) ([]string, bool) {
	task := strings.TrimSpace(sub[1])
	if task == "" {
		return nil, false
	}
	// The trigger is never free text, so trailing politeness goes.
	return []string{task, sub[2], trimPunct(stripPoliteness(sub[3]))}, true
}

const (
	volumeLevel = `(-?\d+) ?(?:%|percent)?`
)

// defaultRules is the built-in grammar, one group per template.
func defaultRules() []Rule {
	var rs []Rule
	add := func(r []Rule) { rs = append(rs, r...) }

	add(group(TemplateSchedule, "schedule", buildSchedule,
		`^schedule (?:to )?(.+) (in|at) (.+)$`,
	))

	add(group(TemplateReminderAdd, "add reminder", nil,
		`^add (?:a |new |a new )?reminder[:,]? (.+)$`,
		`^(?:remind me|set (?:a )?reminder|create (?:a )?reminder)(?: to)?[:,]? (.+)$`,
	))
	add(group(TemplateReminderList, "list reminders", none,
		`^(?:list|show|read)(?: me)?(?: all| my| all my| the)? reminders$`,
		`^what are my reminders$`,
	))
	add(group(TemplateReminderDelete, "delete reminder", nil,
		`^(?:delete|remove|cancel|clear) (?:the |my )?reminder(?: number)? #?(.+)$`,
	))

	add(group(TemplateTimerSet, "set timer for", nil,
		`^(?:set|start) (?:a |the )?timer (?:for )?(.+)$`,
		`^(?:set|start) (?:a |an )?(\d+ ?[a-z]+) timer$`,
	))
	add(group(TemplateTimerCancel, "cancel timer", none,
		`^(?:cancel|stop|clear) (?:the |my )?timer$`,
	))

	add(group(TemplateLightsOn, "turn on the lights", none, lightsPatterns("on")...))
	add(group(TemplateLightsOff, "turn off the lights", none, lightsPatterns("off")...))

	add(group(TemplateMusicPlay, "play music", buildPlay,
		`^(?:play|put on) (?:some |my |the )?(.+)$`,
	))
	add(group(TemplateMusicStop, "stop music", none,
		`^(?:stop|pause) (?:the |my )?(?:playing )?(?:music|songs?|playback)$`,
		`^stop playing$`,
	))
	add(group(TemplateMusicShuffle, "shuffle", buildShuffle,
		`^shuffle ?(?:my |the |some )?(.*)$`,
	))
	add(group(TemplateMusicNext, "next song", none,
		`^(?:go to |play )?(?:the )?next (?:song|track)$`,
	))
	add(group(TemplateMusicSkip, "skip song", none,
		`^skip(?: to next)?(?: the| this)?(?: song| track)?$`,
	))

	add(group(TemplateVolumeSet, "set volume to", nil,
		`^(?:set|change|turn) (?:the )?volume (?:to |at )?`+volumeLevel+`$`,
		`^volume (?:to )?`+volumeLevel+`$`,
	))
	add(group(TemplateVolumeUp, "increase volume", none,
		`^(?:increase|raise|turn up|bump up) (?:the )?volume$`,
		`^(?:volume up|louder|turn it up)$`,
	))
	add(group(TemplateVolumeDown, "decrease volume", none,
		`^(?:decrease|lower|reduce|turn down) (?:the )?volume$`,
		`^(?:volume down|softer|quieter|turn it down)$`,
	))

	add(group(TemplateTime, "what is the time", none,
		`^what(?:'s|s| is) the (?:current )?time(?: now| right now)?$`,
		`^(?:what time is it|tell me the time|current time)(?: now| right now)?$`,
	))
	add(group(TemplateDate, "what is the date", none,
		`^what(?:'s|s| is) (?:the )?(?:date|day)(?: today)?$`,
		`^what(?:'s|s| is) today(?:'s date)?$`,
		`^(?:what day is (?:it|today)|tell me the date|today's date)$`,
	))
	add(group(TemplateJoke, "tell me a joke", none,
		`^(?:tell|give) (?:me |us )?(?:a |another )?(?:joke|funny joke|something funny)$`,
		`^(?:make me laugh|joke)$`,
	))

	add(group(TemplateQuery, "general query", nil,
		`^(?:general query|ask)[:,]? (.+)$`,
	))
	add(group(TemplateFallback, "given", nil,
		`^given: (.+)$`,
	))
	return rs
}
