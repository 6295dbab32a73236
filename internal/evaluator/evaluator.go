// Package evaluator grades a worker's answer against the original request
// by asking a language model to act as a judge, then signs the verdict
// under the orchestrator's own key.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// systemPrompt instructs the model to act as a judge and reply with strict
// JSON. Its exact wording is part of the evaluator's reproducibility
// contract: changing it changes every future relevance score.
const systemPrompt = `You act as an evaluator of an AI's performance. You will be provided with a conversation history between a human and an AI. Your task is to analyze the AI's response, assess its quality, and provide a brief verdict in JSON format consisting of two fields:
'relevance' — a number from 0 to 100, where 0 means the response is completely irrelevant, and 100 means the response fully meets expectations and is accurate.
'description' — a short textual explanation of the given score.
Return only a JSON object. Do not include any additional text or commentary before or after the JSON object.`

// Request asks the evaluator to grade one worker's NodeResponse row within
// query. Result is delivered on Result exactly once.
type Request struct {
	Query    types.Query
	NodeKey  identity.PublicKey
	Result   chan<- Result
}

// Result is the outcome handed back to the task that asked for a
// verification; Err is set only for bookkeeping failures that prevented
// even producing a Timeout-eligible verdict (in practice this never
// happens: verdicts always resolve, see Run).
type Result struct {
	Verdict types.SignedVerificationResult
	Err     error
}

// Evaluator is a single multiplexed task: each inbound Request spawns a
// detached goroutine so one slow model call never blocks another.
type Evaluator struct {
	log     logging.Logger
	key     identity.PrivateKey
	model   ai.Ai
	inbound chan Request
}

// New constructs an Evaluator signing verdicts under key and grading with
// model. Call Run in its own goroutine to start processing.
func New(key identity.PrivateKey, model ai.Ai, log logging.Logger) *Evaluator {
	return &Evaluator{key: key, model: model, log: log, inbound: make(chan Request, 256)}
}

// Submit enqueues a grading request; it never blocks on the model call
// itself.
func (e *Evaluator) Submit(ctx context.Context, req Request) error {
	select {
	case e.inbound <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains inbound requests until ctx is cancelled, spawning one
// goroutine per request.
func (e *Evaluator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.inbound:
			go e.handle(ctx, req)
		}
	}
}

func (e *Evaluator) handle(ctx context.Context, req Request) {
	material, ok := findNodeResponse(req.Query, req.NodeKey)
	if !ok {
		req.Result <- Result{Verdict: e.failureVerdict(types.SignedAiResponse{}, fmt.Errorf("node response not found"))}
		return
	}

	question, err := prepareQuestion(req.Query, req.NodeKey)
	if err != nil {
		req.Result <- Result{Verdict: e.failureVerdict(material, err)}
		return
	}

	answer, err := e.model.Ask(ctx, ai.Question{
		Message: question,
		History: []types.History{{Role: types.RoleSystem, Content: systemPrompt}},
		Options: ai.QuestionOptions{Seed: req.Query.Request.Query.Seed},
	})
	if err != nil {
		req.Result <- Result{Verdict: e.failureVerdict(material, err)}
		return
	}

	relevance, description, err := parseVerdict(answer.Message)
	if err != nil {
		req.Result <- Result{Verdict: e.failureVerdict(material, err)}
		return
	}

	result := types.VerificationResult{
		Material:    material,
		Inspector:   e.key.PublicKey(),
		Relevance:   relevance,
		Description: description,
	}
	req.Result <- Result{Verdict: types.SignVerification(e.key, result)}
}

// failureVerdict produces the always-signed, relevance-0 fallback: every
// NodeResponse must terminate as Verified or Timeout, never stuck.
func (e *Evaluator) failureVerdict(material types.SignedAiResponse, reason error) types.SignedVerificationResult {
	result := types.VerificationResult{
		Material:    material,
		Inspector:   e.key.PublicKey(),
		Relevance:   types.Zero(),
		Description: fmt.Sprintf("Failed to evaluate AI response: %v", reason),
	}
	return types.SignVerification(e.key, result)
}

func findNodeResponse(q types.Query, nodeKey identity.PublicKey) (types.SignedAiResponse, bool) {
	for _, r := range q.Responses {
		if r.Kind == types.KindNodeResponse && r.Response.NodeKey() == nodeKey {
			return r.Response, true
		}
	}
	return types.SignedAiResponse{}, false
}

// prepareQuestion assembles the judge prompt: the query id, the full
// history block, the original user message, and the worker's answer.
func prepareQuestion(q types.Query, nodeKey identity.PublicKey) (string, error) {
	var b strings.Builder
	id := q.ID.String()

	fmt.Fprintf(&b, "id: %s\n", id)
	fmt.Fprintf(&b, "history section start %s\n", id)
	for _, h := range q.Request.Query.History {
		fmt.Fprintf(&b, "%s:\n%s\n", h.Role, h.Content)
	}
	fmt.Fprintf(&b, "history section end %s\n", id)
	fmt.Fprintf(&b, "user request with id %s:\n%s\n", id, q.Request.Query.Message)

	resp, ok := findNodeResponse(q, nodeKey)
	if !ok {
		return "", fmt.Errorf("node response not found")
	}
	fmt.Fprintf(&b, "ai response with id %s:\n%s\n", id, resp.Response.Message)
	return b.String(), nil
}

type verdictJSON struct {
	Relevance int    `json:"relevance"`
	Description string `json:"description"`
}

// parseVerdict locates the outermost {...} substring of the model's free-form
// output and parses it, clamping relevance into 0..=100.
func parseVerdict(raw string) (types.Percent, string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || end < start {
		return types.Percent{}, "", fmt.Errorf("no JSON object found in model output")
	}
	var v verdictJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw[start:end+1])), &v); err != nil {
		return types.Percent{}, "", fmt.Errorf("invalid verdict JSON: %w", err)
	}
	relevance, err := types.NewPercent(v.Relevance)
	if err != nil {
		return types.Percent{}, "", fmt.Errorf("invalid relevance: %w", err)
	}
	return relevance, v.Description, nil
}
