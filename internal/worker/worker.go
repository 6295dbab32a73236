// Package worker implements the inference-endpoint side of the protocol:
// one task that answers AiRequests dispatched by a single trusted
// orchestrator peer, per spec.md §4.6.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/ai"
	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// Config names the orchestrator this worker answers to and bounds a single
// inference call.
type Config struct {
	OrchestratorKey identity.PublicKey
	ResponseTimeout time.Duration
}

// Worker owns the node's private key and AI backend; it is driven entirely
// by the transport's event stream.
type Worker struct {
	cfg     Config
	key     identity.PrivateKey
	model   ai.Ai
	metrics *metrics.Metrics
	log     logging.Logger
}

// New builds a Worker answering requests with model via key.
func New(cfg Config, key identity.PrivateKey, model ai.Ai, m *metrics.Metrics, log logging.Logger) *Worker {
	return &Worker{cfg: cfg, key: key, model: model, metrics: m, log: log}
}

// Run drains transport until ctx is cancelled or the event channel closes.
// Every EventMessage is handled in its own goroutine so a slow model call
// never blocks delivery of the next request.
func (w *Worker) Run(ctx context.Context, transport etp.Transport) error {
	events := transport.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("worker: transport event channel closed")
			}
			w.handleEvent(ctx, transport, ev)
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, transport etp.Transport, ev etp.Event) {
	switch ev.Kind {
	case etp.EventConnect:
		w.log.Infof("worker: connected to %s", ev.Peer)
	case etp.EventDisconnect:
		w.log.Infof("worker: disconnected from %s", ev.Peer)
	case etp.EventMessage:
		go w.handleInbound(ctx, transport, ev.Peer, ev.Inbound)
	}
}

// handleInbound decodes an EveMessage from sender; anything but an
// OrchMessage::AiRequest from the configured orchestrator is dropped.
func (w *Worker) handleInbound(ctx context.Context, transport etp.Transport, sender identity.PublicKey, payload []byte) {
	msg, err := types.DecodeEveMessage(payload)
	if err != nil {
		w.log.Warnf("worker: malformed message from %s: %v", sender, err)
		return
	}
	if msg.Kind != types.KindOrchMessage {
		w.log.Warnf("worker: unexpected Node-tagged message from %s", sender)
		return
	}
	if sender != w.cfg.OrchestratorKey {
		w.log.Warnf("worker: rejecting request from non-orchestrator peer %s", sender)
		w.metrics.Errors.WithLabelValues("invalid_sender").Inc()
		return
	}

	id := msg.Orch.ID
	req := msg.Orch.Request

	w.log.Infof("worker: received request %s from orchestrator", id)
	resp, err := w.answer(ctx, req)
	if err != nil {
		w.log.Warnf("worker: request %s failed: %v", id, err)
		w.metrics.Errors.WithLabelValues("inference").Inc()
		w.send(ctx, transport, sender, id, types.WrapNodeError(id, err.Error()))
		return
	}
	w.send(ctx, transport, sender, id, types.WrapNode(id, resp))
}

// answer verifies req's signature, calls the model and signs the resulting
// AiResponse, copying req's own signature through as request_signature.
func (w *Worker) answer(ctx context.Context, req types.SignedAiRequest) (types.SignedAiResponse, error) {
	if !req.Verify() {
		return types.SignedAiResponse{}, errInvalidSignature
	}
	if err := req.Query.ValidateHistory(); err != nil {
		return types.SignedAiResponse{}, err
	}

	question := ai.Question{
		Message: req.Query.Message,
		History: req.Query.History,
		Options: ai.QuestionOptions{Seed: req.Query.Seed},
	}
	answer, err := w.model.Ask(ctx, question)
	if err != nil {
		return types.SignedAiResponse{}, err
	}

	resp := types.AiResponse{
		Message:          answer.Message,
		PubKey:           w.key.PublicKey(),
		RequestSignature: req.Signature,
		Cost:             answer.Tokens,
		Timestamp:        types.Now(),
	}
	return types.SignResponse(w.key, resp), nil
}

// send publishes resp to sender, waiting up to ResponseTimeout for the ETP
// layer to confirm delivery; failures are only logged, mirroring the
// original's fire-and-forget node.rs reply path.
func (w *Worker) send(ctx context.Context, transport etp.Transport, sender identity.PublicKey, id types.QueryId, msg types.EveMessage) {
	notify, err := transport.Send(ctx, sender, msg.Encode(), w.timeout())
	if err != nil {
		w.log.Warnf("worker: failed to send response for %s: %v", id, err)
		return
	}
	select {
	case res := <-notify:
		w.log.Infof("worker: sent response for %s to orchestrator: %v", id, res.Outcome == etp.DeliverySuccess)
	case <-ctx.Done():
	}
}

func (w *Worker) timeout() time.Duration {
	if w.cfg.ResponseTimeout <= 0 {
		return 30 * time.Second
	}
	return w.cfg.ResponseTimeout
}
