// Package actions holds the default in-process executors behind the
// dispatcher: reminders, a countdown timer, lights, a music player, a clock,
// jokes and the general-query responder.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homecmd/internal/storage"
	logx "homecmd/pkg/logx"
)

// Reminders replies to reminder commands from a storage.Store.
type Reminders struct {
	store storage.Store
	log   logx.Logger
}

func NewReminders(store storage.Store, log logx.Logger) *Reminders {
	return &Reminders{store: store, log: log.With(logx.String("comp", "reminders"))}
}

func (r *Reminders) AddReminder(ctx context.Context, text string) (string, error) {
	rem, err := r.store.AddReminder(ctx, text)
	if err != nil {
		return "", err
	}
	r.log.Info("reminder added", logx.Int("id", rem.ID), logx.String("at", rem.At))
	return fmt.Sprintf("Okay! I'll remind you to %s.", rem.Text), nil
}

func (r *Reminders) ListReminders(ctx context.Context) (string, error) {
	list, err := r.store.ListReminders(ctx)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "You have no reminders.", nil
	}
	var b strings.Builder
	b.WriteString("Your reminders:")
	for _, rem := range list {
		fmt.Fprintf(&b, "\n[%d] %s", rem.ID, rem.Text)
	}
	return b.String(), nil
}

func (r *Reminders) DeleteReminder(ctx context.Context, id int) (string, error) {
	rem, err := r.store.DeleteReminder(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("I couldn't find reminder %d.", id), nil
	}
	if err != nil {
		return "", err
	}
	return deleted(rem), nil
}

func (r *Reminders) DeleteReminderText(ctx context.Context, text string) (string, error) {
	rem, err := r.store.DeleteReminderByText(ctx, text)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("I couldn't find a reminder about %s.", text), nil
	}
	if err != nil {
		return "", err
	}
	return deleted(rem), nil
}

func deleted(rem storage.Reminder) string {
	return fmt.Sprintf("Deleted reminder [%d] %s.", rem.ID, rem.Text)
}
