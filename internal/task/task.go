package task

import (
	"context"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/evaluator"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/network"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// NodeResponse is what the dispatch loop hands to a running Task once a
// worker's answer (or a delivery failure) arrives for its query.
type NodeResponse struct {
	Sender   identity.PublicKey
	Response types.SignedAiResponse
	Err      string // non-empty means the worker (or delivery) reported a failure
}

// Task drives a single query through Dispatching, Collecting, Evaluating
// and Persisted. It owns its Query exclusively: no other goroutine ever
// touches it.
type Task struct {
	env   *Env
	query types.Query
	pool  *network.Pool
	inbox chan NodeResponse
	done  chan struct{}

	verifierResults chan evaluator.Result
	pendingVerdicts int
}

// New builds a Task over query, ready to dispatch against pool.
func New(env *Env, query types.Query, pool *network.Pool) *Task {
	return &Task{
		env:             env,
		query:           query,
		pool:            pool,
		inbox:           make(chan NodeResponse, env.Config.ReplicationFactor+1),
		done:            make(chan struct{}),
		verifierResults: make(chan evaluator.Result, env.Config.ReplicationFactor+1),
	}
}

// Inbox is the channel the dispatch loop forwards NodeResponses through.
func (t *Task) Inbox() chan<- NodeResponse { return t.inbox }

// ID returns the owned query's id.
func (t *Task) ID() types.QueryId { return t.query.ID }

// Done reports whether Run has returned; Tasks.GC uses this to drop
// entries without ever reading from (and thereby stealing from) inbox.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Run executes the full per-query state machine. ready is signalled once
// dispatch has completed (even with zero workers enrolled) so the API
// caller can be answered immediately; Run then keeps running to collect,
// evaluate and finally persist a terminal snapshot.
func (t *Task) Run(ctx context.Context, ready chan<- types.QueryId) {
	defer close(t.done)
	deadline := time.Now().Add(t.env.Config.TaskTimeout)

	t.dispatch(ctx, deadline)
	if err := t.env.UpdateQuery(t.query); err != nil {
		t.env.Log.Warnf("task: failed to persist dispatched query %s: %v", t.query.ID, err)
	}
	select {
	case ready <- t.query.ID:
	case <-ctx.Done():
		return
	}

	if t.sentCount() == 0 {
		t.env.Log.Warnf("task: 0 workers enrolled for query %s", t.query.ID)
		t.env.Metrics.ProcessingDown()
		return
	}

	t.collect(ctx, deadline)
	t.evaluate(ctx, deadline)

	latency := float64(types.Now() - t.query.Request.Query.Timestamp)
	t.env.Metrics.Latency.Observe(latency)
	t.env.Metrics.ProcessingDown()
	t.env.Log.Debugf("task: query %s completed", t.query.ID)
}

// dispatch fills the response list with SentRequest rows, drawing workers
// from the pool without replacement until N are enrolled, the pool is
// empty, or the deadline passes.
func (t *Task) dispatch(ctx context.Context, deadline time.Time) {
	for t.sentCount() < t.env.Config.ReplicationFactor && t.pool.Len() > 0 && time.Now().Before(deadline) {
		remaining := t.env.Config.ReplicationFactor - t.sentCount()
		t.dispatchBatch(ctx, remaining, deadline)
	}
}

func (t *Task) dispatchBatch(ctx context.Context, n int, deadline time.Time) {
	type draw struct {
		peer identity.PublicKey
	}
	draws := make([]draw, 0, n)
	for i := 0; i < n; i++ {
		peer, ok := t.pool.Take()
		if !ok {
			break
		}
		draws = append(draws, draw{peer: peer})
	}

	timeout := time.Until(deadline)
	if timeout <= 0 {
		return
	}

	type outcome struct {
		peer    identity.PublicKey
		success bool
	}
	results := make(chan outcome, len(draws))
	for _, d := range draws {
		d := d
		go func() {
			notify, err := t.env.SendRequest(ctx, t.query.ID, d.peer, t.query.Request, timeout)
			if err != nil {
				results <- outcome{peer: d.peer, success: false}
				return
			}
			select {
			case res := <-notify:
				results <- outcome{peer: d.peer, success: res.Outcome == 0 /* DeliverySuccess */}
			case <-ctx.Done():
				results <- outcome{peer: d.peer, success: false}
			}
		}()
	}
	for range draws {
		o := <-results
		if o.success {
			t.query.Responses = append(t.query.Responses, types.SentRequest(o.peer))
		} else {
			t.env.Log.Warnf("task: failed to deliver request to %s for query %s", o.peer, t.query.ID)
		}
	}
}

func (t *Task) sentCount() int { return len(t.query.Responses) }

// collect waits for worker answers until every row is terminal or
// NodeResponse, or the deadline passes.
func (t *Task) collect(ctx context.Context, deadline time.Time) {
	for !t.allRequestsReceived() {
		select {
		case <-time.After(time.Until(deadline)):
			t.applyTimeout()
			return
		case resp, ok := <-t.inbox:
			if !ok {
				return
			}
			t.applyNodeResponse(resp)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Task) allRequestsReceived() bool {
	for _, r := range t.query.Responses {
		if r.Kind != types.KindNodeResponse && r.Kind != types.KindError {
			return false
		}
	}
	return true
}

func (t *Task) applyNodeResponse(resp NodeResponse) {
	idx := -1
	for i, r := range t.query.Responses {
		if r.NodeKey() == resp.Sender && r.IsSentRequest() {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.env.Log.Warnf("task: response from unexpected sender %s for query %s", resp.Sender, t.query.ID)
		return
	}

	if resp.Err != "" {
		t.query.Responses[idx] = types.ErrorResult(resp.Sender, resp.Err)
	} else {
		if err := t.env.Transfer(t.query.Request.Query.PubKey, resp.Sender, resp.Response.Response.Cost); err != nil {
			t.env.Log.Warnf("task: transfer failed for query %s: %v", t.query.ID, err)
		}
		t.query.Responses[idx] = types.Responded(resp.Response)
		t.submitForVerification(resp.Sender)
	}

	if err := t.env.UpdateQuery(t.query); err != nil {
		t.env.Log.Warnf("task: failed to persist query %s: %v", t.query.ID, err)
	}
}

func (t *Task) submitForVerification(nodeKey identity.PublicKey) {
	result := make(chan evaluator.Result, 1)
	err := t.env.SubmitVerification(context.Background(), evaluator.Request{
		Query:   t.query,
		NodeKey: nodeKey,
		Result:  result,
	})
	if err != nil {
		t.env.Log.Warnf("task: failed to submit verification for query %s: %v", t.query.ID, err)
		return
	}
	t.pendingVerdicts++
	go func() {
		select {
		case r := <-result:
			t.verifierResults <- r
		}
	}()
}

// evaluate drains verifier results until every submitted verdict resolves
// or the deadline passes.
func (t *Task) evaluate(ctx context.Context, deadline time.Time) {
	for t.pendingVerdicts > 0 {
		select {
		case <-time.After(time.Until(deadline)):
			t.applyTimeout()
			return
		case r := <-t.verifierResults:
			t.pendingVerdicts--
			t.applyVerdict(r)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Task) applyVerdict(r evaluator.Result) {
	if r.Err != nil {
		t.env.Log.Warnf("task: verifier error for query %s: %v", t.query.ID, r.Err)
		return
	}
	nodeKey := r.Verdict.Result.Material.NodeKey()
	for i, row := range t.query.Responses {
		if row.NodeKey() == nodeKey {
			t.query.Responses[i] = types.VerifiedResult(r.Verdict)
			break
		}
	}
	if err := t.env.UpdateQuery(t.query); err != nil {
		t.env.Log.Warnf("task: failed to persist query %s: %v", t.query.ID, err)
	}
}

// applyTimeout rewrites every non-terminal row to Timeout and persists.
func (t *Task) applyTimeout() {
	t.env.Metrics.Timeouts.Inc()
	for i, row := range t.query.Responses {
		if !row.IsTerminal() {
			t.query.Responses[i] = types.TimedOut(row)
		}
	}
	if err := t.env.UpdateQuery(t.query); err != nil {
		t.env.Log.Warnf("task: failed to persist timed-out query %s: %v", t.query.ID, err)
	}
}
