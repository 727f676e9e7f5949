// Package transport carries protocol messages between the host and its
// peers. The Host owns the session's single executor goroutine: inbound
// frames, peer connect/disconnect events, and injected work all run on
// it one at a time, so handlers never race with each other.
package transport

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/protocol"
)

// outboxSize bounds the per-peer send queue. A peer whose queue is full
// when a frame arrives is dropped rather than allowed to stall the rest
// of the session.
const outboxSize = 32

const (
	inboxSize = 64
	workSize  = 64
)

var (
	// ErrPeerExists reports an Attach with an id already connected.
	ErrPeerExists = errors.New("transport: peer id already attached")
	// ErrClosed reports use of a host after Close.
	ErrClosed = errors.New("transport: host closed")
)

// Handler consumes one decoded message. from is the attached peer id the
// frame arrived on, or the id given to Inject.
type Handler func(from string, msg protocol.Message)

// PeerEventKind tags a connection life-cycle event.
type PeerEventKind int

const (
	PeerConnected PeerEventKind = iota
	PeerDisconnected
)

// PeerEvent reports a peer joining or leaving the session.
type PeerEvent struct {
	Kind PeerEventKind
	ID   string
}

// Peer is one attached connection. The socket layer drains Frames into
// the websocket; the channel closes when the peer is detached.
type Peer struct {
	ID     string
	outbox chan []byte
}

// Frames is the peer's outbound queue.
func (p *Peer) Frames() <-chan []byte { return p.outbox }

type inbound struct {
	from  string
	frame []byte
	// msg is set instead of frame for injected messages, which skip
	// the wire codec.
	msg protocol.Message
}

// Host fans frames in from attached peers, dispatches them to
// registered handlers on the executor goroutine, and fans outbound
// messages back out.
type Host struct {
	code string
	log  *zap.Logger

	mu       sync.Mutex
	peers    map[string]*Peer
	handlers map[protocol.Type]Handler
	onEvent  func(PeerEvent)
	closed   bool

	inbox  chan inbound
	events chan PeerEvent
	work   chan func()
	done   chan struct{}
	once   sync.Once
}

// NewHost creates a host for the given session code and starts its
// executor goroutine.
func NewHost(code string, log *zap.Logger) *Host {
	h := &Host{
		code:     code,
		log:      log.With(zap.String("session", code)),
		peers:    make(map[string]*Peer),
		handlers: make(map[protocol.Type]Handler),
		inbox:    make(chan inbound, inboxSize),
		events:   make(chan PeerEvent, inboxSize),
		work:     make(chan func(), workSize),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

// Code is the session code peers dial with.
func (h *Host) Code() string { return h.code }

// Handle registers the handler for a message type. At most one handler
// exists per type; a later registration replaces the earlier one.
func (h *Host) Handle(t protocol.Type, fn Handler) {
	h.mu.Lock()
	h.handlers[t] = fn
	h.mu.Unlock()
}

// OnPeerEvent registers the connection life-cycle callback. It runs on
// the executor goroutine.
func (h *Host) OnPeerEvent(fn func(PeerEvent)) {
	h.mu.Lock()
	h.onEvent = fn
	h.mu.Unlock()
}

// Attach registers a connected peer and returns its outbound queue.
func (h *Host) Attach(id string) (*Peer, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := h.peers[id]; ok {
		h.mu.Unlock()
		return nil, ErrPeerExists
	}
	p := &Peer{ID: id, outbox: make(chan []byte, outboxSize)}
	h.peers[id] = p
	h.mu.Unlock()

	h.emit(PeerEvent{Kind: PeerConnected, ID: id})
	return p, nil
}

// Detach removes a peer and closes its outbound queue. Safe to call for
// an id that is already gone.
func (h *Host) Detach(id string) {
	h.mu.Lock()
	p, ok := h.peers[id]
	if ok {
		delete(h.peers, id)
		close(p.outbox)
	}
	h.mu.Unlock()
	if ok {
		h.emit(PeerEvent{Kind: PeerDisconnected, ID: id})
	}
}

// Deliver queues a raw inbound frame from a peer for dispatch.
func (h *Host) Deliver(from string, frame []byte) {
	select {
	case h.inbox <- inbound{from: from, frame: frame}:
	case <-h.done:
	}
}

// Inject queues an already-typed message as if the given peer had sent
// it. Local seats (the host player, AI players) act through this path
// so they pass the same handlers as remote peers.
func (h *Host) Inject(from string, msg protocol.Message) {
	select {
	case h.inbox <- inbound{from: from, msg: msg}:
	case <-h.done:
	}
}

// Do runs fn on the executor goroutine, serialized with message
// dispatch. It does not wait for fn to run.
func (h *Host) Do(fn func()) {
	select {
	case h.work <- fn:
	case <-h.done:
	}
}

// Send delivers one message to one peer. It reports false when the peer
// is not attached; a peer too slow to take the frame is dropped.
func (h *Host) Send(to string, msg protocol.Message) bool {
	frame, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error("encode failed", zap.String("type", string(msg.Type())), zap.Error(err))
		return false
	}
	return h.sendFrame(to, frame)
}

// Broadcast delivers one message to every attached peer.
func (h *Host) Broadcast(msg protocol.Message) {
	h.BroadcastExcept("", msg)
}

// BroadcastExcept delivers one message to every attached peer but the
// named one.
func (h *Host) BroadcastExcept(except string, msg protocol.Message) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error("encode failed", zap.String("type", string(msg.Type())), zap.Error(err))
		return
	}
	for _, id := range h.PeerIDs() {
		if id == except {
			continue
		}
		h.sendFrame(id, frame)
	}
}

// PeerIDs lists the attached peer ids.
func (h *Host) PeerIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}
	return ids
}

// IsAttached reports whether the peer id has a live connection.
func (h *Host) IsAttached(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.peers[id]
	return ok
}

// Close shuts the executor down and detaches every peer.
func (h *Host) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		for id, p := range h.peers {
			delete(h.peers, id)
			close(p.outbox)
		}
		h.mu.Unlock()
		close(h.done)
	})
}

func (h *Host) sendFrame(to string, frame []byte) bool {
	h.mu.Lock()
	p, ok := h.peers[to]
	h.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case p.outbox <- frame:
		return true
	default:
		h.log.Warn("peer outbox full, dropping peer", zap.String("peer", to))
		h.Detach(to)
		return false
	}
}

func (h *Host) emit(ev PeerEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *Host) run() {
	for {
		select {
		case in := <-h.inbox:
			h.dispatch(in)
		case ev := <-h.events:
			h.mu.Lock()
			fn := h.onEvent
			h.mu.Unlock()
			if fn != nil {
				fn(ev)
			}
		case fn := <-h.work:
			fn()
		case <-h.done:
			return
		}
	}
}

func (h *Host) dispatch(in inbound) {
	msg := in.msg
	if msg == nil {
		var err error
		msg, err = protocol.Decode(in.frame)
		if err != nil {
			h.log.Debug("dropping undecodable frame",
				zap.String("peer", in.from), zap.Error(err))
			h.Send(in.from, &protocol.Error{Code: "bad_message", Message: "unreadable message"})
			return
		}
	}
	h.mu.Lock()
	fn := h.handlers[msg.Type()]
	h.mu.Unlock()
	if fn == nil {
		h.log.Debug("no handler for message",
			zap.String("peer", in.from), zap.String("type", string(msg.Type())))
		return
	}
	fn(in.from, msg)
}
