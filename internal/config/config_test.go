package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func TestDecodeFormats(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		data string
	}{
		{
			name: "json",
			file: "homecmd.json",
			data: `{
				"assistant": {"mode": "conversation", "timezone": "Europe/Berlin"},
				"storage": {"driver": "sqlite", "path": "./h.db"},
				"scheduler": {"routines": [{"name": "wake", "cron": "0 7 * * *", "command": "what is the date"}]}
			}`,
		},
		{
			name: "yaml",
			file: "homecmd.yaml",
			data: `
assistant:
  mode: conversation
  timezone: Europe/Berlin
storage:
  driver: sqlite
  path: ./h.db
scheduler:
  routines:
    - name: wake
      cron: "0 7 * * *"
      command: what is the date
`,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Decode(tc.file, []byte(tc.data))
			require.NoError(t, err)
			require.NoError(t, Validate(cfg))
			require.True(t, cfg.Conversation())
			require.Equal(t, "sqlite", cfg.Storage.Driver)
			require.Equal(t, []RoutineConfig{{Name: "wake", Cron: "0 7 * * *", Command: "what is the date"}}, cfg.Scheduler.Routines)

			// omitted sections keep defaults
			require.Equal(t, 50, cfg.Music.DefaultVolume)
			require.Equal(t, "info", cfg.Logging.Level)
			require.True(t, cfg.Logging.Console)

			loc, err := cfg.Location()
			require.NoError(t, err)
			require.Equal(t, "Europe/Berlin", loc.String())
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		data string
	}{
		{"unknown json field", "c.json", `{"assistant": {"wake_word": "jarvis"}}`},
		{"unknown yaml field", "c.yml", "storage:\n  drvier: file\n"},
		{"trailing data", "c.json", `{"logging": {"level": "debug"}} {"logging": {}}`},
		{"bad yaml", "c.yaml", "assistant: [unclosed"},
		{"type mismatch", "c.json", `{"music": {"default_volume": "loud"}}`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tc.file, []byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestDecodeEmptyIsDefaults(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"c.json", "c.yaml"} {
		cfg, err := Decode(name, []byte("  \n"))
		require.NoError(t, err, name)
		require.Equal(t, Defaults(), cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"mode", func(c *Config) { c.Assistant.Mode = "chatty" }, "assistant.mode"},
		{"timezone", func(c *Config) { c.Assistant.Timezone = "Mars/Olympus" }, "assistant.timezone"},
		{"file without path", func(c *Config) { c.Storage.Driver = "file" }, "storage.path"},
		{"driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"busy timeout", func(c *Config) { c.Storage.BusyTimeout = "soon" }, "storage.busy_timeout"},
		{"query timeout", func(c *Config) { c.Query.Timeout = "-1s" }, "query.timeout"},
		{"query model", func(c *Config) { c.Query.Enabled = true; c.Query.Model = "" }, "query.model"},
		{"volume", func(c *Config) { c.Music.DefaultVolume = 120 }, "music.default_volume"},
		{"log file", func(c *Config) { c.Logging.File.Enabled = true }, "logging.file.path"},
		{"routine name", func(c *Config) {
			c.Scheduler.Routines = []RoutineConfig{{Cron: "@daily", Command: "tell me a joke"}}
		}, "scheduler.routines[0].name"},
		{"routine duplicate", func(c *Config) {
			r := RoutineConfig{Name: "a", Cron: "@daily", Command: "tell me a joke"}
			c.Scheduler.Routines = []RoutineConfig{r, r}
		}, "duplicate"},
		{"routine command", func(c *Config) {
			c.Scheduler.Routines = []RoutineConfig{{Name: "a", Cron: "@daily"}}
		}, "scheduler.routines[0].command"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Defaults()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", " 1m30s ")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	d, err = ParseDurationOrDefault("x", "", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, d)

	_, err = ParseDurationField("query.timeout", "ten")
	require.ErrorContains(t, err, `query.timeout: invalid duration "ten"`)
}

func TestManagerMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "absent.json"))
	cfg, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
	require.Same(t, cfg, m.Get())
}

func TestManagerValidatorRejectsLoad(t *testing.T) {
	t.Parallel()
	m := NewManager("")
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		return os.ErrPermission
	})
	_, err := m.Load(context.Background())
	require.ErrorIs(t, err, os.ErrPermission)
	require.Nil(t, m.Get())
}

func TestManagerWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "homecmd.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging": {"level": "info"}}`), 0o600))

	m := NewManager(path)
	m.debounce = 20 * time.Millisecond
	_, err := m.Load(context.Background())
	require.NoError(t, err)
	sub := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Keep rewriting until the watcher is up and has seen a change.
	var got *Config
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"logging": {"level": "debug"}}`), 0o600)
		select {
		case got = <-sub:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, "debug", got.Logging.Level)
	require.Equal(t, "debug", m.Get().Logging.Level)

	// An invalid document is logged and ignored.
	require.NoError(t, os.WriteFile(path, []byte(`{"logging": {"levle": "warn"}}`), 0o600))
	time.Sleep(200 * time.Millisecond)
	select {
	case c := <-sub:
		require.Equal(t, "debug", c.Logging.Level, "only unchanged republishes are possible")
	default:
	}
	require.Equal(t, "debug", m.Get().Logging.Level)
}

func TestPublishKeepsNewest(t *testing.T) {
	t.Parallel()
	m := NewManager("")
	sub := m.Subscribe(1)
	a, b := Defaults(), Defaults()
	b.Logging.Level = "warn"
	m.publish(a)
	m.publish(b)
	require.Same(t, b, <-sub)

	m.Unsubscribe(sub)
	_, ok := <-sub
	require.False(t, ok)
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldCfg := Defaults()
	newCfg := Defaults()
	newCfg.Logging.Level = "debug"
	newCfg.Scheduler.Routines = []RoutineConfig{{Name: "a", Cron: "@hourly", Command: "tell me a joke"}}
	newCfg.Storage.Driver = "file"

	changed, attrs := SummarizeChange(oldCfg, newCfg)
	require.Equal(t, []string{"logging", "scheduler", "storage"}, changed)
	require.NotEmpty(t, attrs)
	require.Equal(t, []string{"storage"}, RestartRequired(changed))

	changed, _ = SummarizeChange(oldCfg, Defaults())
	require.Empty(t, changed)
}
