package rpc

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// pendingCall is the correlation slot for one outstanding request. ch is
// buffered so the resolver never blocks; only whoever removes the slot from
// Mux.pending may send on it.
type pendingCall struct {
	ch chan result
}

type result struct {
	msg *Message
	err error
}

// Mux multiplexes many concurrent requests over one Bus using a single
// wildcard inbox subscription. Replies are matched by correlation id, never
// by arrival order.
//
// Each pending call is resolved exactly once by the first of: its reply,
// the caller's context ending, or the connection closing. Anything that
// arrives afterwards for the same id is dropped.
type Mux struct {
	name  string
	bus   Bus
	inbox string

	mu      sync.Mutex
	pending map[string]*pendingCall
	closed  bool

	unsubscribe func() error
}

// NewMux subscribes to a fresh inbox on bus and returns a ready Mux.
// name labels metrics and logs (normally the domain name).
func NewMux(name string, bus Bus) (*Mux, error) {
	m := &Mux{
		name:    name,
		bus:     bus,
		inbox:   bus.NewInbox(),
		pending: make(map[string]*pendingCall),
	}
	unsub, err := bus.Subscribe(m.inbox+".*", m.onReply)
	if err != nil {
		return nil, err
	}
	m.unsubscribe = unsub
	bus.OnClose(func() { m.failAll(ErrClosed) })
	return m, nil
}

// Request publishes data to subject and waits for the correlated reply.
//
// It returns ctx.Err() when ctx ends first, ErrDisconnected when the bus is
// down at call time, ErrNoResponders when nobody is subscribed, and ErrClosed
// when the connection closes while waiting.
func (m *Mux) Request(ctx context.Context, subject string, header map[string][]string, data []byte) (*Message, error) {
	if !m.bus.Connected() {
		return nil, ErrDisconnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	pc := &pendingCall{ch: make(chan result, 1)}
	if !m.register(id, pc) {
		return nil, ErrClosed
	}

	err := m.bus.Publish(&Message{
		Subject: subject,
		Reply:   m.inbox + "." + id,
		Header:  header,
		Data:    data,
	})
	if err != nil {
		if m.take(id) != nil {
			return nil, err
		}
		// Resolved concurrently (e.g. by close); that resolution wins.
		r := <-pc.ch
		return r.msg, r.err
	}

	select {
	case r := <-pc.ch:
		return r.msg, r.err
	case <-ctx.Done():
		if m.take(id) != nil {
			return nil, ctx.Err()
		}
		// A reply won the race and already owns the slot.
		r := <-pc.ch
		return r.msg, r.err
	}
}

// Pending returns the number of outstanding calls.
func (m *Mux) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close unsubscribes from the inbox and fails every outstanding call.
func (m *Mux) Close() error {
	var err error
	if m.unsubscribe != nil {
		err = m.unsubscribe()
	}
	m.failAll(ErrClosed)
	return err
}

func (m *Mux) register(id string, pc *pendingCall) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.pending[id] = pc
	rpcPending.WithLabelValues(m.name).Inc()
	return true
}

// take removes and returns the slot for id, or nil if it was already taken.
// It is the single-resolution primitive.
func (m *Mux) take(id string) *pendingCall {
	m.mu.Lock()
	pc, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if ok {
		rpcPending.WithLabelValues(m.name).Dec()
	}
	return pc
}

func (m *Mux) onReply(msg *Message) {
	id := msg.Subject
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		id = id[i+1:]
	}
	pc := m.take(id)
	if pc == nil {
		rpcLateReplies.WithLabelValues(m.name).Inc()
		log.Debug().Str("domain", m.name).Str("correlation_id", id).Msg("rpc late reply dropped")
		return
	}
	if isNoResponders(msg) {
		pc.ch <- result{err: ErrNoResponders}
		return
	}
	pc.ch <- result{msg: msg}
}

func (m *Mux) failAll(err error) {
	m.mu.Lock()
	m.closed = true
	pending := m.pending
	m.pending = make(map[string]*pendingCall)
	m.mu.Unlock()

	for _, pc := range pending {
		rpcPending.WithLabelValues(m.name).Dec()
		pc.ch <- result{err: err}
	}
}
