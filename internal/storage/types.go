package storage

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
)

var (
	ErrClosed    = errors.New("storage: closed")
	ErrNotFound  = errors.New("storage: reminder not found")
	ErrEmptyText = errors.New("storage: empty reminder text")
)

// Config configures storage.
//
// Driver is "memory" (also the empty value), "file" or "sqlite".
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Reminder is one stored reminder. Text is kept exactly as given; At is the
// time phrase found in it ("8pm", "7:30 am"), if any.
type Reminder struct {
	ID      int       `json:"-"`
	Text    string    `json:"text"`
	At      string    `json:"time"`
	Created time.Time `json:"created"`
}

type Store interface {
	AddReminder(ctx context.Context, text string) (Reminder, error)
	// ListReminders returns reminders ordered by id.
	ListReminders(ctx context.Context) ([]Reminder, error)
	DeleteReminder(ctx context.Context, id int) (Reminder, error)
	// DeleteReminderByText deletes the oldest reminder whose text equals ref,
	// or failing that the oldest one containing it as whole words.
	DeleteReminderByText(ctx context.Context, ref string) (Reminder, error)
	Close() error
}

var reTimePhrase = regexp.MustCompile(`(?i)\b(?:at|for) (\d{1,2}(?::\d{2})? ?(?:am|pm))\b`)

// TimePhrase returns the first "at <time>" phrase in text.
func TimePhrase(text string) string {
	m := reTimePhrase.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func newReminder(id int, text string, now time.Time) (Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reminder{}, ErrEmptyText
	}
	return Reminder{ID: id, Text: text, At: TimePhrase(text), Created: now}, nil
}

// matchText picks the reminder DeleteReminderByText removes.
func matchText(rs []Reminder, ref string) (Reminder, bool) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return Reminder{}, false
	}
	for _, r := range rs {
		if strings.ToLower(r.Text) == ref {
			return r, true
		}
	}
	want := strings.Fields(ref)
	for _, r := range rs {
		if containsWords(strings.Fields(strings.ToLower(r.Text)), want) {
			return r, true
		}
	}
	return Reminder{}, false
}

// containsWords reports whether want appears in words as a contiguous run
// of whole words.
func containsWords(words, want []string) bool {
	for i := 0; i+len(want) <= len(words); i++ {
		if slices.Equal(words[i:i+len(want)], want) {
			return true
		}
	}
	return false
}
