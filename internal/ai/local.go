package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"golang.org/x/time/rate"
)

// LocalConfig configures the HTTP-based local model client.
type LocalConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RetryLimit int

	// RequestsPerInterval/Interval define the token-bucket rate limit
	// applied before every model call.
	RequestsPerInterval int
	Interval            time.Duration
}

// Local invokes a chat-completion style local model server (e.g. an Ollama
// instance) over plain HTTP, honoring a token-bucket rate limit and
// retrying transient failures with fibonacci backoff.
type Local struct {
	log        logging.Logger
	cfg        LocalConfig
	client     *http.Client
	limiter    *rate.Limiter
	retryLimit int
}

// NewLocal builds a Local client against cfg.
func NewLocal(cfg LocalConfig, log logging.Logger) *Local {
	every := cfg.Interval
	if every <= 0 {
		every = time.Second
	}
	reqs := cfg.RequestsPerInterval
	if reqs <= 0 {
		reqs = 1
	}
	return &Local{
		log:        log,
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(every/time.Duration(reqs)), reqs),
		retryLimit: cfg.RetryLimit,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  chatReqOptions `json:"options"`
}

type chatReqOptions struct {
	Temperature float32 `json:"temperature"`
	Seed        int32   `json:"seed"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	PromptEvalCount uint64      `json:"prompt_eval_count"`
	EvalCount       uint64      `json:"eval_count"`
}

func roleName(r types.Role) string {
	switch r {
	case types.RoleAssistant:
		return "assistant"
	case types.RoleSystem:
		return "system"
	default:
		return "user"
	}
}

// Ask implements Ai. It waits on the rate limiter, then retries the HTTP
// call on transient errors using a fibonacci backoff schedule.
func (l *Local) Ask(ctx context.Context, q Question) (Answer, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Answer{}, fmt.Errorf("%w: rate limiter: %v", ErrInternal, err)
	}

	messages := make([]chatMessage, 0, len(q.History)+1)
	for _, h := range q.History {
		messages = append(messages, chatMessage{Role: roleName(h.Role), Content: h.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: q.Message})

	req := chatRequest{
		Model:    l.cfg.Model,
		Messages: messages,
		Options:  chatReqOptions{Temperature: q.Options.Temperature, Seed: q.Options.Seed},
	}

	var resp chatResponse
	var lastErr error
	for attempt := 0; attempt <= l.retryLimit; attempt++ {
		if attempt > 0 {
			wait := fibonacciDelay(attempt)
			l.log.Warnf("ai: retrying local model call (attempt %d) after %s: %v", attempt, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Answer{}, ctx.Err()
			}
		}
		resp, lastErr = l.doChat(ctx, req)
		if lastErr == nil {
			return Answer{
				Message: resp.Message.Content,
				Tokens:  resp.PromptEvalCount + resp.EvalCount,
			}, nil
		}
		if !isTransient(lastErr) {
			break
		}
	}
	return Answer{}, fmt.Errorf("%w: %v", ErrInternal, lastErr)
}

func (l *Local) doChat(ctx context.Context, req chatRequest) (chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return chatResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return chatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return chatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chatResponse{}, fmt.Errorf("local model returned status %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatResponse{}, err
	}
	return out, nil
}

// isTransient is a conservative classifier: anything but a decode error is
// treated as retryable, mirroring the original's "always retry on I/O or
// timeout" policy.
func isTransient(err error) bool { return err != nil }

// fibonacciDelay returns the nth term of the fibonacci backoff schedule in
// whole seconds, starting at 1s.
func fibonacciDelay(attempt int) time.Duration {
	a, b := 1, 1
	for i := 0; i < attempt; i++ {
		a, b = b, a+b
	}
	return time.Duration(a) * time.Second
}
