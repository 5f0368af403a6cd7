package actions

import (
	"context"
	"math/rand/v2"
	"sync"
)

var defaultJokes = []string{
	"Why don't skeletons fight each other? They don't have the guts.",
	"I told my wife she was drawing her eyebrows too high. She looked surprised.",
	"Why did the scarecrow win an award? Because he was outstanding in his field.",
	"I'm reading a book about anti-gravity. It's impossible to put down.",
	"What do you call a fake noodle? An impasta.",
	"Why don't eggs tell jokes? They'd crack each other up.",
	"Parallel lines have so much in common. It's a shame they'll never meet.",
	"I used to play piano by ear, but now I use my hands.",
}

// Jokes picks a random joke from a fixed list.
type Jokes struct {
	mu    sync.Mutex
	rng   *rand.Rand
	jokes []string
}

// NewJokes uses the built-in list when jokes is empty. A nil src means a
// randomly seeded source.
func NewJokes(src rand.Source, jokes ...string) *Jokes {
	if len(jokes) == 0 {
		jokes = defaultJokes
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Jokes{rng: rand.New(src), jokes: jokes}
}

func (j *Jokes) Joke(ctx context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jokes[j.rng.IntN(len(j.jokes))], nil
}
