// Package task runs one query at a time through its dispatch, collection,
// evaluation and timeout states, independent of every other in-flight
// query.
package task

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/blocking"
	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/evaluator"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// Config bounds one query's dispatch.
type Config struct {
	ReplicationFactor int
	TaskTimeout       time.Duration
}

// Env bundles everything a Task needs but does not own: storage, the
// evaluator's inbound queue, the transport's send primitive and metrics.
// It is shared read-only across every concurrently running Task.
type Env struct {
	Storage   *storage.EveStorage
	Evaluator *evaluator.Evaluator
	Transport etp.Transport
	Metrics   *metrics.Metrics
	Config    Config
	Log       logging.Logger
	Blocking  *blocking.Pool
}

// NewQueryId mints a fresh id for req using a random nonce.
func (e *Env) NewQueryId(req types.SignedAiRequest) types.QueryId {
	var nonce [16]byte
	_, _ = rand.Read(nonce[:])
	return types.NewQueryId(nonce, req)
}

// NewQuery allocates sequence and query id atomically, then persists the
// empty-response query in one write batch on the blocking pool.
func (e *Env) NewQuery(req types.SignedAiRequest) (types.Query, error) {
	var query types.Query
	err := e.Blocking.Do(func() error {
		ws := storage.NewWriteSet()
		seq, err := e.Storage.IncrementAndGet(req.Query.PubKey, ws)
		if err != nil {
			return fmt.Errorf("task: incrementing sequence: %w", err)
		}
		query = types.Query{
			ID:        e.NewQueryId(req),
			Sequence:  seq,
			Request:   req,
			Responses: nil,
		}
		e.Storage.PutQuery(query, ws)
		if err := e.Storage.Commit(ws); err != nil {
			return fmt.Errorf("task: persisting query: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Query{}, err
	}
	return query, nil
}

// UpdateQuery persists query's current response rows in one write batch,
// routed through the blocking pool so the owning task goroutine only
// suspends rather than touching disk itself.
func (e *Env) UpdateQuery(query types.Query) error {
	return e.Blocking.Do(func() error {
		ws := storage.NewWriteSet()
		e.Storage.PutQuery(query, ws)
		return e.Storage.Commit(ws)
	})
}

// Transfer debits from and credits to atomically in one write batch on the
// blocking pool. A failed debit (insufficient funds) still commits:
// balances saturate and "sufficient funds" is enforced by the API layer
// before dispatch, not here.
func (e *Env) Transfer(from, to identity.PublicKey, amount uint64) error {
	return e.Blocking.Do(func() error {
		ws := storage.NewWriteSet()
		if _, err := e.Storage.Debit(from, amount, ws); err != nil {
			return err
		}
		if err := e.Storage.Credit(to, amount, ws); err != nil {
			return err
		}
		return e.Storage.Commit(ws)
	})
}

// SendRequest dispatches req to peer over the transport, tagged with id so
// the worker's reply can be routed back without trusting anything derived
// from its signature, and returns the one-shot delivery channel.
func (e *Env) SendRequest(ctx context.Context, id types.QueryId, peer identity.PublicKey, req types.SignedAiRequest, timeout time.Duration) (<-chan etp.DeliveryResult, error) {
	var target types.PublicKeyBytes
	copy(target[:], peer.Bytes())
	payload := types.WrapOrch(id, target, req).Encode()
	return e.Transport.Send(ctx, peer, payload, timeout)
}

// SubmitVerification enqueues a grading request with the evaluator.
func (e *Env) SubmitVerification(ctx context.Context, req evaluator.Request) error {
	return e.Evaluator.Submit(ctx, req)
}
