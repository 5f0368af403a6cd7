package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	logx "homecmd/pkg/logx"
)

// Validate checks field values that strict decoding cannot. It reports every
// problem it finds, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch strings.ToLower(strings.TrimSpace(cfg.Assistant.Mode)) {
	case "", ModeCommand, ModeConversation:
	default:
		add("assistant.mode: unknown mode %q", cfg.Assistant.Mode)
	}
	if _, err := cfg.Location(); err != nil {
		add("assistant.timezone: %w", err)
	}

	if cfg.Scheduler.HistorySize < 0 {
		add("scheduler.history_size: must be >= 0")
	}
	seen := make(map[string]bool, len(cfg.Scheduler.Routines))
	for i, r := range cfg.Scheduler.Routines {
		name := strings.TrimSpace(r.Name)
		switch {
		case name == "":
			add("scheduler.routines[%d].name: required", i)
		case seen[name]:
			add("scheduler.routines[%d].name: duplicate %q", i, name)
		}
		seen[name] = true
		if strings.TrimSpace(r.Cron) == "" {
			add("scheduler.routines[%d].cron: required", i)
		}
		if strings.TrimSpace(r.Command) == "" {
			add("scheduler.routines[%d].command: required", i)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "memory":
	case "file", "json", "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			add("storage.path: required for driver %q", cfg.Storage.Driver)
		}
	default:
		add("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	if _, err := ParseDurationField("query.timeout", cfg.Query.Timeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Query.Enabled && strings.TrimSpace(cfg.Query.Model) == "" {
		add("query.model: required when query is enabled")
	}
	if cfg.Query.MaxHistory < 0 {
		add("query.max_history: must be >= 0")
	}
	if cfg.Query.RatePerSec < 0 {
		add("query.rate_per_sec: must be >= 0")
	}

	if v := cfg.Music.DefaultVolume; v < 0 || v > 100 {
		add("music.default_volume: %d out of range 0..100", v)
	}
	if v := cfg.Music.VolumeStep; v < 0 || v > 100 {
		add("music.volume_step: %d out of range 0..100", v)
	}

	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		add("logging.file.path: required when file logging is enabled")
	}
	return errors.Join(errs...)
}

// Location resolves assistant.timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Assistant.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// Conversation reports whether the assistant runs in conversation mode.
func (c *Config) Conversation() bool {
	return strings.EqualFold(strings.TrimSpace(c.Assistant.Mode), ModeConversation)
}

// LogConfig maps the logging section onto logx.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	}
}
