package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	logx "homecmd/pkg/logx"
)

var ErrEmptyAnswer = errors.New("query: empty answer")

// Generator is the part of llms.Model the responder uses.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// NewOpenAI builds a client for any OpenAI compatible chat endpoint. An empty
// baseURL means api.openai.com.
func NewOpenAI(baseURL, model, token string) (*openai.LLM, error) {
	opts := []openai.Option{openai.WithModel(model), openai.WithToken(token)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

type QueryOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// MaxHistory is how many earlier question/answer pairs are sent along.
	MaxHistory int
	Timeout    time.Duration
	// RatePerSec limits calls; 0 means unlimited.
	RatePerSec float64
}

// Query answers general questions through a chat model, keeping a short
// conversation history.
type Query struct {
	gen     Generator
	opts    QueryOptions
	limiter *rate.Limiter
	log     logx.Logger

	mu      sync.Mutex
	history []llms.MessageContent
}

func NewQuery(gen Generator, opts QueryOptions, log logx.Logger) *Query {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return &Query{
		gen:     gen,
		opts:    opts,
		limiter: limiter,
		log:     log.With(logx.String("comp", "query")),
	}
}

func (q *Query) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("query: empty question")
	}
	if q.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.Timeout)
		defer cancel()
	}
	if err := q.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("query: rate limit: %w", err)
	}

	start := time.Now()
	resp, err := q.gen.GenerateContent(ctx, q.messages(question), q.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	answer := strings.TrimSpace(resp.Choices[0].Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	q.log.Debug("query answered", logx.Duration("took", time.Since(start)), logx.Int("answer_len", len(answer)))
	q.remember(question, answer)
	return answer, nil
}

// Reset forgets the conversation history.
func (q *Query) Reset() {
	q.mu.Lock()
	q.history = nil
	q.mu.Unlock()
}

func (q *Query) messages(question string) []llms.MessageContent {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := make([]llms.MessageContent, 0, len(q.history)+2)
	if p := strings.TrimSpace(q.opts.SystemPrompt); p != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, p))
	}
	msgs = append(msgs, q.history...)
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, question))
}

func (q *Query) remember(question, answer string) {
	if q.opts.MaxHistory <= 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.history = append(q.history,
		llms.TextParts(llms.ChatMessageTypeHuman, question),
		llms.TextParts(llms.ChatMessageTypeAI, answer),
	)
	if over := len(q.history) - 2*q.opts.MaxHistory; over > 0 {
		q.history = append([]llms.MessageContent(nil), q.history[over:]...)
	}
}

func (q *Query) callOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(q.opts.Temperature)}
	if q.opts.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(q.opts.MaxTokens))
	}
	return opts
}
