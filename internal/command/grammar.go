package command

import (
	"regexp"
	"strings"
	"unicode"
)

// Rule maps one surface pattern to a template.
//
// Pattern runs against the cleaned utterance. Build turns the submatches
// into template args; a nil Build uses the submatches as-is, and ok=false
// rejects the match. Prefix is the literal prefix of the canonical template
// and decides precedence when several rules match.
type Rule struct {
	Template Template
	Prefix   string
	Pattern  *regexp.Regexp
	Build    func(sub []string) (args []string, ok bool)
}

// Grammar is an ordered rule list.
type Grammar struct {
	rules []Rule
}

// NewGrammar returns a grammar evaluating rules in the given order.
func NewGrammar(rules ...Rule) *Grammar {
	return &Grammar{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the rule list.
func (g *Grammar) Rules() []Rule {
	return append([]Rule(nil), g.rules...)
}

var defaultGrammar = NewGrammar(defaultRules()...)

// Default returns the built-in command grammar.
func Default() *Grammar { return defaultGrammar }

// Normalize maps an utterance to its canonical command using the default grammar.
func Normalize(utterance string) Command { return defaultGrammar.Normalize(utterance) }

// Parse matches an utterance using the default grammar.
func Parse(utterance string) Match { return defaultGrammar.Parse(utterance) }

func (g *Grammar) Normalize(utterance string) Command {
	return g.Parse(utterance).Command
}

// verbatim templates capture free text that must reach the executor
// as spoken, polite words included.
var verbatim = map[Template]bool{
	TemplateReminderAdd:    true,
	TemplateReminderDelete: true,
	TemplateQuery:          true,
	TemplateSchedule:       true,
}

// Parse matches an utterance against the grammar.
//
// Utterances starting with "schedule" only consider schedule rules. For
// everything else the matching rule with the longest Prefix wins and ties
// go to the earlier rule. Politeness words ("please", "thanks") are dropped
// before matching, except when the utterance already matches a free-text
// template as is.
func (g *Grammar) Parse(utterance string) Match {
	s := Clean(utterance)
	if s == "" {
		return fallbackMatch(ReasonEmpty)
	}
	raw, rawOK := g.match(s)
	if rawOK && verbatim[raw.Template] {
		return raw
	}
	p := trimPunct(stripPoliteness(s))
	if p == "" {
		return fallbackMatch(ReasonEmpty)
	}
	if m, ok := g.match(p); ok {
		return m
	}
	if rawOK {
		return raw
	}
	if isScheduling(p) {
		return fallbackMatch(ReasonSchedule)
	}
	return fallbackMatch(ReasonNoMatch)
}

func isScheduling(s string) bool {
	return s == "schedule" || strings.HasPrefix(s, "schedule ")
}

func (g *Grammar) match(s string) (Match, bool) {
	scheduling := isScheduling(s)
	var (
		best    Match
		bestLen = -1
	)
	for _, r := range g.rules {
		if r.Pattern == nil {
			continue
		}
		if scheduling != (r.Template == TemplateSchedule) {
			continue
		}
		if len(r.Prefix) <= bestLen {
			continue
		}
		sub := r.Pattern.FindStringSubmatch(s)
		if sub == nil {
			continue
		}
		args := sub[1:]
		if r.Build != nil {
			var ok bool
			args, ok = r.Build(sub)
			if !ok {
				continue
			}
		}
		args = cleanArgs(args)
		best = Match{Template: r.Template, Args: args}
		bestLen = len(r.Prefix)
	}
	if bestLen < 0 {
		return Match{}, false
	}
	best.Command = render(best.Template, best.Args)
	return best, true
}

// labels emitted by upstream recognition steps.
var labels = []string{"you said:", "command:"}

// Clean applies the canonical text rules: lowercase, one line with single
// spaces, no backticks or double quotes, no leading or trailing punctuation.
// A percent sign is kept since volume levels end with one.
func Clean(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '`', '"', '“', '”':
			return -1
		case '‘', '’':
			return '\''
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	s = trimPunct(s)
	for _, l := range labels {
		if strings.HasPrefix(s, l) {
			s = trimPunct(s[len(l):])
		}
	}
	return s
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		if r == '%' {
			return false
		}
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func cleanArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.TrimSpace(a)
	}
	return out
}
