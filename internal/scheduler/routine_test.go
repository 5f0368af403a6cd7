package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()
	s := New(WithLocation(time.UTC))
	tests := []struct {
		name    string
		spec    string
		next    time.Time
		wantErr bool
	}{
		{name: "cron", spec: "30 8 * * *", next: start.Add(30 * time.Minute)},
		{name: "cron with seconds", spec: "15 0 8 * * *", next: start.Add(15 * time.Second)},
		{name: "descriptor", spec: "@hourly", next: start.Add(time.Hour)},
		{name: "every descriptor", spec: "@every 10m", next: start.Add(10 * time.Minute)},
		{name: "forced cron", spec: "cron: */5 * * * *", next: start.Add(5 * time.Minute)},
		{name: "duration", spec: "90m", next: start.Add(90 * time.Minute)},
		{name: "hhmm", spec: "01:30", next: start.Add(90 * time.Minute)},
		{name: "forced interval", spec: "every:2h", next: start.Add(2 * time.Hour)},
		{name: "empty", spec: " ", wantErr: true},
		{name: "garbage", spec: "whenever", wantErr: true},
		{name: "bad cron", spec: "61 * * * *", wantErr: true},
		{name: "too short", spec: "500ms", wantErr: true},
		{name: "bad minutes", spec: "1:75", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sched, err := s.ParseSpec(tt.spec)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTrigger)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.next, sched.Next(start))
		})
	}
}

func TestRoutineRearmsAfterFiring(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	err := hs.s.SetRoutines([]Routine{
		{Name: "lights", Spec: "@every 1m", Command: "turn on the lights"},
		{Name: "broken", Spec: "nope", Command: "tell me a joke"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), `routine "broken"`)

	require.Equal(t, map[string]time.Time{"lights": start.Add(time.Minute)}, hs.s.Routines())

	hs.run(t, nil)
	hs.clk.waitArmed(t, start.Add(time.Minute))
	hs.clk.Advance(time.Minute)
	got := hs.next(t)
	require.Equal(t, "lights", got.Routine)

	hs.clk.waitArmed(t, start.Add(2*time.Minute))
	pending := hs.s.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, "lights", pending[0].Routine)
	require.NotEqual(t, got.ID, pending[0].ID)
}

func TestCancelRoutineSkipsOccurrence(t *testing.T) {
	t.Parallel()
	s := New(WithClock(newFakeClock(start)), WithLocation(time.UTC))
	require.NoError(t, s.SetRoutines([]Routine{{Name: "news", Spec: "0 9 * * *", Command: "general query: news"}}))

	first := s.Pending()[0]
	require.Equal(t, start.Add(time.Hour), first.FireAt)
	require.True(t, s.Cancel(first.ID))

	second := s.Pending()
	require.Len(t, second, 1)
	require.Equal(t, start.Add(25*time.Hour), second[0].FireAt)
}

func TestSetRoutinesReplaces(t *testing.T) {
	t.Parallel()
	s := New(WithClock(newFakeClock(start)), WithLocation(time.UTC))
	require.NoError(t, s.SetRoutines([]Routine{{Name: "a", Spec: "5m", Command: "next song"}}))
	old := s.Pending()[0]

	require.NoError(t, s.SetRoutines([]Routine{{Name: "b", Spec: "10m", Command: "skip song"}}))
	p := s.Pending()
	require.Len(t, p, 1)
	require.Equal(t, "b", p[0].Routine)

	ti, ok := s.Get(old.ID)
	require.True(t, ok)
	require.Equal(t, StatusCancelled, ti.Status)

	require.NoError(t, s.SetRoutines(nil))
	require.Empty(t, s.Pending())
	require.Empty(t, s.Routines())
}
