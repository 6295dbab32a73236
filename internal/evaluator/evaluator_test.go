package evaluator

import (
	"context"
	"testing"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestQuery(t *testing.T, worker identity.PublicKey) types.Query {
	t.Helper()
	clientKey, err := identity.GenerateKey()
	require.NoError(t, err)
	req := types.Sign(clientKey, types.AiRequest{Timestamp: types.Now(), Message: "what is 2+2?"})

	workerKey, err := identity.GenerateKey()
	require.NoError(t, err)
	resp := types.SignResponse(workerKey, types.AiResponse{Message: "4", PubKey: worker})

	return types.Query{
		Request:   req,
		Responses: []types.NodeResult{types.Responded(resp)},
	}
}

func TestEvaluatorProducesVerifiedVerdictOnValidJSON(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	workerKey, err := identity.GenerateKey()
	require.NoError(t, err)
	worker := workerKey.PublicKey()

	model := &ai.Mock{Reply: `{"relevance": 90, "description": "correct"}`}
	ev := New(key, model, logging.New("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ev.Run(ctx)

	result := make(chan Result, 1)
	require.NoError(t, ev.Submit(ctx, Request{Query: newTestQuery(t, worker), NodeKey: worker, Result: result}))

	select {
	case res := <-result:
		require.NoError(t, res.Err)
		require.Equal(t, uint8(90), res.Verdict.Result.Relevance.Value())
		require.Equal(t, "correct", res.Verdict.Result.Description)
		require.True(t, res.Verdict.Verify(key.PublicKey()))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verdict")
	}
}

func TestEvaluatorFallsBackToZeroRelevanceOnModelError(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	workerKey, err := identity.GenerateKey()
	require.NoError(t, err)
	worker := workerKey.PublicKey()

	model := &ai.Mock{Err: context.DeadlineExceeded}
	ev := New(key, model, logging.New("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ev.Run(ctx)

	result := make(chan Result, 1)
	require.NoError(t, ev.Submit(ctx, Request{Query: newTestQuery(t, worker), NodeKey: worker, Result: result}))

	select {
	case res := <-result:
		require.Equal(t, uint8(0), res.Verdict.Result.Relevance.Value())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verdict")
	}
}

func TestEvaluatorFallsBackOnUnparsableModelOutput(t *testing.T) {
	key, err := identity.GenerateKey()
	require.NoError(t, err)
	workerKey, err := identity.GenerateKey()
	require.NoError(t, err)
	worker := workerKey.PublicKey()

	model := &ai.Mock{Reply: "not json at all"}
	ev := New(key, model, logging.New("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ev.Run(ctx)

	result := make(chan Result, 1)
	require.NoError(t, ev.Submit(ctx, Request{Query: newTestQuery(t, worker), NodeKey: worker, Result: result}))

	select {
	case res := <-result:
		require.Equal(t, uint8(0), res.Verdict.Result.Relevance.Value())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verdict")
	}
}
