package etp

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	libp2pnet "github.com/libp2p/go-libp2p/core/host"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
)

const (
	defaultPingInterval = 10 * time.Second
	defaultPingTimeout  = 30 * time.Second
	defaultTick         = 10 * time.Second
)

type rawFrame struct {
	data []byte
	from libp2ppeer.ID
}

type sendCmd struct {
	peer    identity.PublicKey
	payload []byte
	timeout time.Duration
	reply   chan sendReply
}

type sendReply struct {
	notify <-chan DeliveryResult
	err    error
}

type whitelistCmd struct {
	peer     identity.PublicKey
	address  *string
	autoDial bool
	reply    chan error
}

type unwhitelistCmd struct {
	peer  identity.PublicKey
	reply chan error
}

type connectOrchCmd struct {
	peer    identity.PublicKey
	address string
	reply   chan error
}

// EtpNet is the concrete Transport backed by a libp2p host and a gossipsub
// router. Exactly one goroutine (run) ever touches nodes, requests and the
// pubsub topic map; every public method only enqueues onto control.
type EtpNet struct {
	log  logging.Logger
	role Role
	self identity.PrivateKey

	host libp2pnet.Host
	ps   *pubsub.PubSub

	selfTopic *pubsub.Topic
	selfSub   *pubsub.Subscription

	peerTopics map[identity.PublicKey]*pubsub.Topic
	byLibp2pID map[libp2ppeer.ID]identity.PublicKey

	nodes    *Nodes
	requests *Requests

	events  chan Event
	control chan interface{}
	raw     chan rawFrame

	pingInterval time.Duration
	pingTimeout  time.Duration
	tick         time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEtpNet wires a transport around an already-constructed libp2p host and
// gossipsub router, subscribes to the local inbox topic and starts the
// owning goroutine.
func NewEtpNet(ctx context.Context, log logging.Logger, role Role, self identity.PrivateKey, h libp2pnet.Host, ps *pubsub.PubSub) (*EtpNet, error) {
	topic, err := ps.Join(InboxTopic(self.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("etp: joining own inbox topic: %w", err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("etp: subscribing own inbox topic: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	n := &EtpNet{
		log:          log,
		role:         role,
		self:         self,
		host:         h,
		ps:           ps,
		selfTopic:    topic,
		selfSub:      sub,
		peerTopics:   make(map[identity.PublicKey]*pubsub.Topic),
		byLibp2pID:   make(map[libp2ppeer.ID]identity.PublicKey),
		nodes:        NewNodes(),
		requests:     NewRequests(),
		events:       make(chan Event, 64),
		control:      make(chan interface{}),
		raw:          make(chan rawFrame, 256),
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
		tick:         defaultTick,
		ctx:          runCtx,
		cancel:       cancel,
	}
	go n.readLoop()
	go n.run()
	return n, nil
}

// readLoop pulls raw gossipsub deliveries off the subscription and forwards
// them to the owning goroutine; it never touches shared state directly.
func (n *EtpNet) readLoop() {
	for {
		msg, err := n.selfSub.Next(n.ctx)
		if err != nil {
			return
		}
		select {
		case n.raw <- rawFrame{data: msg.Data, from: msg.GetFrom()}:
		case <-n.ctx.Done():
			return
		}
	}
}

// run is the single cooperative loop that owns nodes, requests and the
// per-peer topic map.
func (n *EtpNet) run() {
	ticker := time.NewTicker(n.tick)
	defer ticker.Stop()
	defer close(n.events)

	for {
		select {
		case <-n.ctx.Done():
			n.disconnectAllOnShutdown()
			return

		case frame := <-n.raw:
			n.handleInbound(frame.data, frame.from)

		case cmd := <-n.control:
			n.handleControl(cmd)

		case now := <-ticker.C:
			n.livenessTick(now)
		}
	}
}

func (n *EtpNet) handleControl(cmd interface{}) {
	switch c := cmd.(type) {
	case sendCmd:
		notify, err := n.doSend(c.peer, c.payload, c.timeout)
		c.reply <- sendReply{notify: notify, err: err}
	case whitelistCmd:
		c.reply <- n.doWhitelist(c.peer, c.address, c.autoDial)
	case unwhitelistCmd:
		c.reply <- n.doUnwhitelist(c.peer)
	case connectOrchCmd:
		c.reply <- n.doConnectOrchestrator(c.peer, c.address)
	}
}

// doConnectOrchestrator is the worker-side bootstrap counterpart to
// doWhitelist: it registers the single orchestrator peer with auto-dial so
// the liveness tick's dial step can bring the connection up, without
// granting the node role any of the orchestrator's admin authority.
func (n *EtpNet) doConnectOrchestrator(peer identity.PublicKey, address string) error {
	if n.role != RoleNode {
		return ErrOrchestratorRoleConnect
	}
	addr := address
	n.nodes.Whitelist(peer, &addr, true, time.Now())
	topic, err := n.ps.Join(InboxTopic(peer))
	if err != nil {
		return fmt.Errorf("etp: joining orchestrator inbox topic: %w", err)
	}
	n.peerTopics[peer] = topic
	if peerID, err := peer.PeerID(); err == nil {
		n.byLibp2pID[peerID] = peer
	}
	return nil
}

func (n *EtpNet) doWhitelist(peer identity.PublicKey, address *string, autoDial bool) error {
	if n.role != RoleOrchestrator {
		return ErrNodeRoleWhitelist
	}
	n.nodes.Whitelist(peer, address, autoDial, time.Now())
	topic, err := n.ps.Join(InboxTopic(peer))
	if err != nil {
		return fmt.Errorf("etp: joining peer inbox topic: %w", err)
	}
	n.peerTopics[peer] = topic
	if peerID, err := peer.PeerID(); err == nil {
		n.byLibp2pID[peerID] = peer
	}
	return n.publishConnected(peer)
}

func (n *EtpNet) doUnwhitelist(peer identity.PublicKey) error {
	node := n.nodes.Get(peer)
	if node != nil && node.State == Ready {
		n.publishDisconnected(peer)
		n.emit(Event{Kind: EventDisconnect, Peer: peer})
	}
	if topic, ok := n.peerTopics[peer]; ok {
		_ = topic.Close()
		delete(n.peerTopics, peer)
	}
	if peerID, err := peer.PeerID(); err == nil {
		delete(n.byLibp2pID, peerID)
	}
	n.nodes.Remove(peer)
	return nil
}

func (n *EtpNet) doSend(peer identity.PublicKey, payload []byte, timeout time.Duration) (<-chan DeliveryResult, error) {
	node := n.nodes.Get(peer)
	if node == nil {
		return nil, ErrUnknownPeer
	}
	if node.State != Ready {
		return nil, ErrNotReady
	}
	id := MessageId(rand.Uint64())
	notify := n.requests.Register(id, time.Now().Add(timeout))
	diag := n.publish(peer, ProtocolMessage{To: peer, Id: id, Payload: SendEtm(payload)})
	if diag != DiagnosticNone {
		n.requests.Resolve(id, DeliveryResult{Outcome: DeliveryFailure, Diagnostic: diag})
		if diag == DiagnosticCheckConnection {
			n.demote(peer)
		}
	}
	return notify, nil
}

// publish writes a frame onto peer's inbox topic and classifies the
// substrate's reaction into a PublishDiagnostic.
func (n *EtpNet) publish(peer identity.PublicKey, msg ProtocolMessage) PublishDiagnostic {
	topic, ok := n.peerTopics[peer]
	if !ok {
		return DiagnosticNotConnected
	}
	if len(topic.ListPeers()) == 0 && peer != n.self.PublicKey() {
		return DiagnosticNoPeersSubscribedToTopic
	}
	if err := topic.Publish(n.ctx, msg.Encode()); err != nil {
		n.log.Warnf("etp: publish to %s failed: %v", peer, err)
		return DiagnosticCheckConnection
	}
	return DiagnosticNone
}

func (n *EtpNet) publishConnected(peer identity.PublicKey) error {
	diag := n.publish(peer, ProtocolMessage{To: peer, Id: MessageId(rand.Uint64()), Payload: ConnectedEtm(n.self.PublicKey())})
	if diag == DiagnosticNotConnected || diag == DiagnosticNoPeersSubscribedToTopic {
		return nil // retried on the next liveness tick
	}
	return nil
}

func (n *EtpNet) publishDisconnected(peer identity.PublicKey) {
	n.publish(peer, ProtocolMessage{To: peer, Id: MessageId(rand.Uint64()), Payload: DisconnectedEtm()})
}

func (n *EtpNet) handleInbound(data []byte, from libp2ppeer.ID) {
	msg, err := DecodeProtocolMessage(data)
	if err != nil {
		n.log.Warnf("etp: dropping malformed frame: %v", err)
		return
	}
	if msg.To != n.self.PublicKey() {
		return
	}
	sender, ok := n.byLibp2pID[from]
	if !ok {
		return // unknown sender, drop silently
	}
	node := n.nodes.Get(sender)
	if node == nil {
		return // unknown sender, drop silently
	}
	node.Touch(time.Now())

	switch msg.Payload.Kind {
	case EtmSend:
		n.ack(sender, msg.Id)
		if node.State == Ready {
			n.emit(Event{Kind: EventMessage, Peer: sender, Inbound: msg.Payload.Payload})
		}
	case EtmAck:
		n.requests.Resolve(msg.Payload.Acked, DeliveryResult{Outcome: DeliverySuccess})
	case EtmConnected:
		wasReady := node.State == Ready
		node.State = Ready
		if !wasReady {
			n.emit(Event{Kind: EventConnect, Peer: sender})
		}
	case EtmDisconnected:
		wasReady := node.State == Ready
		node.State = Disconnected
		if wasReady {
			n.emit(Event{Kind: EventDisconnect, Peer: sender})
		}
	case EtmReConnect:
		n.demote(sender)
		_ = n.publishConnected(sender)
	case EtmPing:
		// liveness touch above is sufficient; no reply required.
	}
}

func (n *EtpNet) ack(peer identity.PublicKey, id MessageId) {
	n.publish(peer, ProtocolMessage{To: peer, Id: id, Payload: AckEtm(id)})
}

func (n *EtpNet) demote(peer identity.PublicKey) {
	node := n.nodes.Get(peer)
	if node == nil {
		return
	}
	wasReady := node.State == Ready
	node.State = Disconnected
	if wasReady {
		n.emit(Event{Kind: EventDisconnect, Peer: peer})
	}
}

// livenessTick implements the four-step background liveness sweep.
func (n *EtpNet) livenessTick(now time.Time) {
	expired := n.requests.ExpireOverdue(now)
	if expired > 0 {
		n.log.Debugf("etp: expired %d pending sends", expired)
	}
	for _, node := range n.nodes.All() {
		idle := now.Sub(node.LastActivity)
		switch node.State {
		case Ready, Connected:
			if idle > n.pingInterval {
				diag := n.publish(node.PublicKey, ProtocolMessage{To: node.PublicKey, Id: MessageId(rand.Uint64()), Payload: PingEtm()})
				if node.State == Connected {
					_ = n.publishConnected(node.PublicKey)
					if diag == DiagnosticCheckConnection {
						n.demote(node.PublicKey)
					}
				}
			}
			if idle > n.pingTimeout {
				n.demote(node.PublicKey)
			}
		case Disconnected:
			if node.AutoDial && node.Address != nil {
				n.dial(node)
			}
		}
	}
}

func (n *EtpNet) dial(node *Node) {
	n.log.Debugf("etp: auto-dial to %s at %s", node.PublicKey, *node.Address)
	node.State = Connected
	node.LastActivity = time.Now()
	_ = n.publishConnected(node.PublicKey)
}

func (n *EtpNet) disconnectAllOnShutdown() {
	for _, node := range n.nodes.All() {
		if node.State == Ready {
			n.publishDisconnected(node.PublicKey)
		}
	}
}

func (n *EtpNet) emit(ev Event) {
	select {
	case n.events <- ev:
	case <-n.ctx.Done():
	}
}

func (n *EtpNet) Send(ctx context.Context, peer identity.PublicKey, payload []byte, timeout time.Duration) (<-chan DeliveryResult, error) {
	reply := make(chan sendReply, 1)
	select {
	case n.control <- sendCmd{peer: peer, payload: payload, timeout: timeout, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-n.ctx.Done():
		return nil, ErrTransportClosed
	}
	r := <-reply
	return r.notify, r.err
}

func (n *EtpNet) Whitelist(peer identity.PublicKey, address *string, autoDial bool) error {
	reply := make(chan error, 1)
	select {
	case n.control <- whitelistCmd{peer: peer, address: address, autoDial: autoDial, reply: reply}:
	case <-n.ctx.Done():
		return ErrTransportClosed
	}
	return <-reply
}

func (n *EtpNet) Unwhitelist(peer identity.PublicKey) error {
	reply := make(chan error, 1)
	select {
	case n.control <- unwhitelistCmd{peer: peer, reply: reply}:
	case <-n.ctx.Done():
		return ErrTransportClosed
	}
	return <-reply
}

func (n *EtpNet) ConnectOrchestrator(peer identity.PublicKey, address string) error {
	reply := make(chan error, 1)
	select {
	case n.control <- connectOrchCmd{peer: peer, address: address, reply: reply}:
	case <-n.ctx.Done():
		return ErrTransportClosed
	}
	return <-reply
}

func (n *EtpNet) Events() <-chan Event { return n.events }

func (n *EtpNet) LocalAddresses() []string {
	addrs := n.host.Addrs()
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

func (n *EtpNet) ReadyPeers() []identity.PublicKey { return n.nodes.Ready() }

func (n *EtpNet) Close() error {
	n.cancel()
	return n.host.Close()
}
