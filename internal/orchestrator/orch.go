package orchestrator

import (
	"context"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/etp"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/task"
	"github.com/Eve-Ai-Labs/eve/internal/types"
)

const gcInterval = 60 * time.Second

// Orchestrator is the fair dispatch loop described in spec.md §4.5: it owns
// the task registry and multiplexes API requests, transport events and the
// periodic GC tick. Exactly one goroutine ever runs Run.
type Orchestrator struct {
	env     *task.Env
	net     *Network
	tasks   *task.Tasks
	log     logging.Logger
	metrics *metrics.Metrics
	reqs    <-chan Request
}

// New builds an Orchestrator ready to Run.
func New(env *task.Env, net *Network, reqs <-chan Request) *Orchestrator {
	return &Orchestrator{
		env:     env,
		net:     net,
		tasks:   task.NewTasks(),
		log:     env.Log,
		metrics: env.Metrics,
		reqs:    reqs,
	}
}

// Run replays the persisted whitelist onto the transport, then serves
// forever until ctx is cancelled or the transport's event channel breaks
// (fatal: the caller must restart the orchestrator).
func (o *Orchestrator) Run(ctx context.Context, transport etp.Transport) error {
	if err := o.net.InitWhitelist(); err != nil {
		return err
	}

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	events := transport.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case req, ok := <-o.reqs:
			if !ok {
				return nil
			}
			o.handleRequest(ctx, req)

		case ev, ok := <-events:
			if !ok {
				o.log.Errorf("orchestrator: transport event channel closed")
				return ErrTransportChannel
			}
			o.handleEvent(ev)

		case <-ticker.C:
			dropped := o.tasks.GC()
			if dropped > 0 {
				o.log.Debugf("orchestrator: gc dropped %d stale tasks", dropped)
			}
		}
	}
}

func (o *Orchestrator) handleRequest(ctx context.Context, req Request) {
	switch {
	case req.Ask != nil:
		o.handleAsk(ctx, req.Ask)
	case req.AddNode != nil:
		o.handleAddNode(req.AddNode)
	case req.RemoveNode != nil:
		o.handleRemoveNode(req.RemoveNode)
	case req.ClusterInfo != nil:
		o.handleClusterInfo(req.ClusterInfo)
	case req.Airdrop != nil:
		o.handleAirdrop(req.Airdrop)
	}
}

func (o *Orchestrator) handleAsk(ctx context.Context, req *AskRequest) {
	o.metrics.Requests.Inc()
	o.metrics.ProcessingUp()

	query, err := o.env.NewQuery(req.Request)
	if err != nil {
		o.metrics.Errors.WithLabelValues("create").Inc()
		o.metrics.ProcessingDown()
		req.Reply <- AskReply{Err: err}
		return
	}

	pool := o.net.Pool()
	t := task.New(o.env, query, pool)
	o.tasks.Register(t)

	ready := make(chan types.QueryId, 1)
	go func() {
		t.Run(ctx, ready)
		o.tasks.Deregister(t.ID())
	}()

	select {
	case id := <-ready:
		req.Reply <- AskReply{ID: id}
	case <-ctx.Done():
	}
}

func (o *Orchestrator) handleAddNode(req *AddNodeRequest) {
	err := o.net.AddNode(req.PublicKey, req.Address)
	if err != nil {
		o.metrics.Errors.WithLabelValues("add_node").Inc()
	}
	req.Reply <- err
}

func (o *Orchestrator) handleRemoveNode(req *RemoveNodeRequest) {
	err := o.net.RemoveNode(req.PublicKey)
	if err != nil {
		o.metrics.Errors.WithLabelValues("remove_node").Inc()
	}
	req.Reply <- err
}

func (o *Orchestrator) handleClusterInfo(req *ClusterInfoRequest) {
	info, err := o.net.ClusterInfo()
	if err != nil {
		o.log.Warnf("orchestrator: cluster info: %v", err)
	}
	req.Reply <- info
}

func (o *Orchestrator) handleAirdrop(req *AirdropRequest) {
	err := o.env.Blocking.Do(func() error {
		ws := storage.NewWriteSet()
		if err := o.env.Storage.Credit(req.PublicKey, req.Amount, ws); err != nil {
			return err
		}
		return o.env.Storage.Commit(ws)
	})
	if err != nil {
		o.metrics.Errors.WithLabelValues("airdrop").Inc()
	}
	req.Reply <- err
}

// handleEvent dispatches a transport-level event. Connect/Disconnect are
// logged only; EventMessage carries an application payload that must be an
// EveMessage wrapping a worker's NodeMessage::AiResponse.
func (o *Orchestrator) handleEvent(ev etp.Event) {
	switch ev.Kind {
	case etp.EventConnect:
		o.log.Infof("orchestrator: peer %s connected", ev.Peer)
	case etp.EventDisconnect:
		o.log.Infof("orchestrator: peer %s disconnected", ev.Peer)
	case etp.EventMessage:
		o.handleInbound(ev.Peer, ev.Inbound)
	}
}

// handleInbound decodes an EveMessage arriving from sender and, if it
// carries a worker's AiResponse, routes it to the owning Task. Anything
// else (an Orch-tagged message looping back, or a malformed frame) is
// logged and dropped: never fatal to the loop.
func (o *Orchestrator) handleInbound(sender identity.PublicKey, payload []byte) {
	msg, err := types.DecodeEveMessage(payload)
	if err != nil {
		o.log.Warnf("orchestrator: malformed message from %s: %v", sender, err)
		return
	}
	if msg.Kind != types.KindNodeMessage {
		o.log.Warnf("orchestrator: unexpected Orch-tagged message from %s", sender)
		return
	}

	if !msg.Node.Ok {
		o.log.Warnf("orchestrator: worker %s reported failure for query %s: %s", sender, msg.Node.ID, msg.Node.Err)
		if !o.tasks.Deliver(msg.Node.ID, task.NodeResponse{Sender: sender, Err: msg.Node.Err}) {
			o.log.Warnf("orchestrator: no running task for response from %s (query already finished or unknown)", sender)
		}
		return
	}

	resp := msg.Node.Response
	if resp.NodeKey() != sender {
		o.log.Warnf("orchestrator: response sender mismatch: frame from %s, signed by %s", sender, resp.NodeKey())
		return
	}
	if !resp.Verify() {
		o.log.Warnf("orchestrator: invalid response signature from %s", sender)
		return
	}
	if !o.tasks.Deliver(msg.Node.ID, task.NodeResponse{Sender: sender, Response: resp}) {
		o.log.Warnf("orchestrator: no running task for response from %s (query already finished or unknown)", sender)
	}
}
