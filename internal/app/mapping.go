package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homecmd/internal/actions"
	"homecmd/internal/command"
	"homecmd/internal/config"
	"homecmd/internal/scheduler"
	"homecmd/internal/storage"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, nil
}

func mapQueryOptions(cfg *config.Config) (actions.QueryOptions, error) {
	q := cfg.Query
	timeout, err := config.ParseDurationOrDefault("query.timeout", q.Timeout, 30*time.Second)
	if err != nil {
		return actions.QueryOptions{}, err
	}
	prompt := strings.TrimSpace(q.SystemPrompt)
	if prompt == "" {
		prompt = config.DefaultSystemPrompt
	}
	return actions.QueryOptions{
		SystemPrompt: prompt,
		Temperature:  q.Temperature,
		MaxTokens:    q.MaxTokens,
		MaxHistory:   q.MaxHistory,
		Timeout:      timeout,
		RatePerSec:   q.RatePerSec,
	}, nil
}

// mapRoutines normalizes routine commands. A routine must resolve to a
// direct command: fallbacks and nested schedules are rejected.
func mapRoutines(cfg *config.Config) ([]scheduler.Routine, error) {
	out := make([]scheduler.Routine, 0, len(cfg.Scheduler.Routines))
	var errs []error
	for i, r := range cfg.Scheduler.Routines {
		m := command.Parse(r.Command)
		switch m.Template {
		case command.TemplateFallback:
			errs = append(errs, fmt.Errorf("scheduler.routines[%d].command: %q: %s", i, r.Command, m.Arg(0)))
			continue
		case command.TemplateSchedule:
			errs = append(errs, fmt.Errorf("scheduler.routines[%d].command: %q: routines cannot schedule", i, r.Command))
			continue
		}
		out = append(out, scheduler.Routine{Name: strings.TrimSpace(r.Name), Spec: r.Cron, Command: m.Command})
	}
	return out, errors.Join(errs...)
}

// validate is the config manager hook: it checks what only the app knows,
// routine commands and routine schedules.
func validate(ctx context.Context, cfg *config.Config) error {
	routines, err := mapRoutines(cfg)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	probe := scheduler.New(scheduler.WithLocation(loc))
	var errs []error
	for i, r := range routines {
		if _, err := probe.ParseSpec(r.Spec); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.routines[%d].cron: %w", i, err))
		}
	}
	if _, err := mapQueryOptions(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
