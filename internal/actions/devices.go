package actions

import (
	"context"
	"fmt"
	"sync"

	logx "homecmd/pkg/logx"
)

// Lights is an in-memory light switch.
type Lights struct {
	mu  sync.Mutex
	on  bool
	log logx.Logger
}

func NewLights(log logx.Logger) *Lights {
	return &Lights{log: log.With(logx.String("comp", "lights"))}
}

func (l *Lights) SetLights(ctx context.Context, on bool) (string, error) {
	l.mu.Lock()
	l.on = on
	l.mu.Unlock()
	l.log.Info("lights switched", logx.Bool("on", on))
	if on {
		return "Lights turned on.", nil
	}
	return "Lights turned off.", nil
}

func (l *Lights) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// PlayerState is a snapshot of the Player.
type PlayerState struct {
	Playing bool
	Shuffle bool
	Genre   string
	Track   int
	Volume  int
}

// Player is an in-memory music player with a volume control. It implements
// both the music and volume executors.
type Player struct {
	mu   sync.Mutex
	st   PlayerState
	step int
	log  logx.Logger
}

// NewPlayer starts stopped at volume, moving step points per volume up/down.
func NewPlayer(volume, step int, log logx.Logger) *Player {
	if step <= 0 {
		step = 10
	}
	return &Player{
		st:   PlayerState{Volume: clampVolume(volume)},
		step: step,
		log:  log.With(logx.String("comp", "music")),
	}
}

func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

func (p *Player) Play(ctx context.Context, genre string) (string, error) {
	return p.start(genre, false), nil
}

func (p *Player) Shuffle(ctx context.Context, genre string) (string, error) {
	return p.start(genre, true), nil
}

func (p *Player) start(genre string, shuffle bool) string {
	p.mu.Lock()
	p.st.Playing, p.st.Shuffle, p.st.Genre, p.st.Track = true, shuffle, genre, 1
	p.mu.Unlock()
	p.log.Info("music started", logx.String("genre", genre), logx.Bool("shuffle", shuffle))

	switch {
	case shuffle && genre == "":
		return "Shuffling all music."
	case shuffle:
		return fmt.Sprintf("Shuffling %s music.", genre)
	case genre == "":
		return "Playing music."
	default:
		return fmt.Sprintf("Playing %s music.", genre)
	}
}

func (p *Player) Stop(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.st.Playing {
		return "Nothing is playing.", nil
	}
	p.st.Playing = false
	return "Music stopped.", nil
}

func (p *Player) Next(ctx context.Context) (string, error) {
	return p.advance("Playing track %d.")
}

func (p *Player) Skip(ctx context.Context) (string, error) {
	return p.advance("Skipped to track %d.")
}

func (p *Player) advance(format string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.st.Playing {
		return "Nothing is playing.", nil
	}
	p.st.Track++
	return fmt.Sprintf(format, p.st.Track), nil
}

func (p *Player) SetVolume(ctx context.Context, level int) (string, error) {
	if level < 0 || level > 100 {
		return "", fmt.Errorf("volume %d out of range", level)
	}
	p.mu.Lock()
	p.st.Volume = level
	p.mu.Unlock()
	return fmt.Sprintf("Volume set to %d%%.", level), nil
}

func (p *Player) StepVolume(ctx context.Context, up bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delta, dir := -p.step, "down"
	if up {
		delta, dir = p.step, "up"
	}
	next := clampVolume(p.st.Volume + delta)
	if next == p.st.Volume {
		return fmt.Sprintf("Volume is already at %d%%.", next), nil
	}
	p.st.Volume = next
	return fmt.Sprintf("Volume %s to %d%%.", dir, next), nil
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}
