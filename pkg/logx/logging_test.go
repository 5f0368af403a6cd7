package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug").With(String("comp", "test"))

	log.Info("hello",
		Int("n", 3),
		Bool("ok", true),
		Duration("took", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)
	log.Trace("dropped")

	lines := decodeLines(t, buf.String())
	require.Len(t, lines, 1)
	got := lines[0]
	require.Equal(t, "hello", got["message"])
	require.Equal(t, "info", got["level"])
	require.Equal(t, "test", got["comp"])
	require.EqualValues(t, 3, got["n"])
	require.Equal(t, true, got["ok"])
	require.Equal(t, "boom", got["err"])
	require.Contains(t, got["caller"], "logging_test.go:")
}

func TestWithDoesNotAlias(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info").With(String("a", "1"))
	left := base.With(String("side", "left"))
	right := base.With(String("side", "right"))

	left.Info("l")
	right.Info("r")

	lines := decodeLines(t, buf.String())
	require.Len(t, lines, 2)
	require.Equal(t, "left", lines[0]["side"])
	require.Equal(t, "right", lines[1]["side"])
	require.Equal(t, "1", lines[1]["a"])
}

func TestZeroAndNop(t *testing.T) {
	t.Parallel()
	var zero Logger
	require.True(t, zero.IsZero())
	require.False(t, Nop().IsZero())
	require.False(t, zero.With(String("k", "v")).IsZero())

	// Neither panics nor writes.
	zero.Error("nothing")
	Nop().Error("nothing")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{" DEBUG ", LevelDebug},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"loud", LevelInfo},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, parseLevel(tc.in, LevelInfo), tc.in)
	}
}

func TestServiceApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homecmd.log")
	svc, log := NewService(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	t.Cleanup(func() { _ = svc.Close() })

	log.Debug("hidden")
	log.Info("first")
	require.False(t, log.Enabled(LevelDebug))

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	require.True(t, log.Enabled(LevelDebug))
	log.Debug("second")
	require.NoError(t, svc.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := decodeLines(t, string(raw))
	require.Len(t, lines, 2)
	require.Equal(t, "first", lines[0]["message"])
	require.Equal(t, "second", lines[1]["message"])
}
