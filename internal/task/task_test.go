package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/blocking"
	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/evaluator"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/network"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport answers every Send with a successful delivery and, when
// respond is set, immediately hands the task a NodeResponse through its
// Inbox rather than exercising any real wire format.
type fakeTransport struct {
	outcome etp.DeliveryOutcome
}

func (f *fakeTransport) Send(_ context.Context, _ identity.PublicKey, _ []byte, _ time.Duration) (<-chan etp.DeliveryResult, error) {
	ch := make(chan etp.DeliveryResult, 1)
	ch <- etp.DeliveryResult{Outcome: f.outcome}
	return ch, nil
}
func (f *fakeTransport) Whitelist(identity.PublicKey, *string, bool) error { return nil }
func (f *fakeTransport) Unwhitelist(identity.PublicKey) error              { return nil }
func (f *fakeTransport) ConnectOrchestrator(identity.PublicKey, string) error {
	return nil
}
func (f *fakeTransport) Events() <-chan etp.Event         { return nil }
func (f *fakeTransport) LocalAddresses() []string         { return nil }
func (f *fakeTransport) ReadyPeers() []identity.PublicKey { return nil }
func (f *fakeTransport) Close() error                     { return nil }

func newTestEnv(t *testing.T, outcome etp.DeliveryOutcome, reply string) *Env {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "eve.db"), logging.New("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	evalKey, err := identity.GenerateKey()
	require.NoError(t, err)
	ev := evaluator.New(evalKey, &ai.Mock{Reply: reply}, logging.New("test"))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ev.Run(ctx)

	pool := blocking.New(2)
	t.Cleanup(pool.Close)

	return &Env{
		Storage:   store,
		Evaluator: ev,
		Transport: &fakeTransport{outcome: outcome},
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Config:    Config{ReplicationFactor: 1, TaskTimeout: 2 * time.Second},
		Log:       logging.New("test"),
		Blocking:  pool,
	}
}

func newTestQuery(t *testing.T) types.Query {
	t.Helper()
	clientKey, err := identity.GenerateKey()
	require.NoError(t, err)
	req := types.Sign(clientKey, types.AiRequest{Timestamp: types.Now(), Message: "2+2?", PubKey: clientKey.PublicKey()})
	return types.Query{ID: types.NewQueryId([16]byte{9}, req), Sequence: 1, Request: req}
}

func TestTaskRunWithZeroWorkersCompletesImmediately(t *testing.T) {
	env := newTestEnv(t, etp.DeliverySuccess, `{"relevance":100,"description":"ok"}`)
	tsk := New(env, newTestQuery(t), network.NewPool(nil))

	ready := make(chan types.QueryId, 1)
	done := make(chan struct{})
	go func() {
		tsk.Run(context.Background(), ready)
		close(done)
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch to complete")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return")
	}
	require.Empty(t, tsk.query.Responses)
}

func TestTaskRunDispatchesAndAnswersTurnVerified(t *testing.T) {
	env := newTestEnv(t, etp.DeliverySuccess, `{"relevance":77,"description":"looks right"}`)
	workerKey, err := identity.GenerateKey()
	require.NoError(t, err)
	worker := workerKey.PublicKey()

	query := newTestQuery(t)
	tsk := New(env, query, network.NewPool([]identity.PublicKey{worker}))

	ready := make(chan types.QueryId, 1)
	done := make(chan struct{})
	go func() {
		tsk.Run(context.Background(), ready)
		close(done)
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
	require.Len(t, tsk.query.Responses, 1)
	require.Equal(t, types.KindSentRequest, tsk.query.Responses[0].Kind)

	resp := types.SignResponse(workerKey, types.AiResponse{Message: "4", PubKey: worker})
	tsk.Inbox() <- NodeResponse{Sender: worker, Response: resp}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Run to finish evaluating")
	}

	require.Len(t, tsk.query.Responses, 1)
	require.Equal(t, types.KindVerified, tsk.query.Responses[0].Kind)
	require.Equal(t, uint8(77), tsk.query.Responses[0].Verdict.Result.Relevance.Value())

	stored, found, err := env.Storage.GetQuery(query.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, stored.IsComplete())
}

func TestTaskRunAppliesTimeoutWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t, etp.DeliveryFailure, "")
	env.Config.TaskTimeout = 300 * time.Millisecond
	workerKey, err := identity.GenerateKey()
	require.NoError(t, err)
	worker := workerKey.PublicKey()

	tsk := New(env, newTestQuery(t), network.NewPool([]identity.PublicKey{worker}))

	ready := make(chan types.QueryId, 1)
	done := make(chan struct{})
	go func() {
		tsk.Run(context.Background(), ready)
		close(done)
	}()

	<-ready
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Run to finish")
	}
	require.Empty(t, tsk.query.Responses, "a failed delivery should never enroll a SentRequest row")
}
