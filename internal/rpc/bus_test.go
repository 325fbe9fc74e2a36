package rpc

import (
	"fmt"
	"strings"
	"sync"
)

// memBus is an in-process Bus. Responders registered with handle run on
// their own goroutine; a nil reply means "never answer".
type memBus struct {
	mu        sync.Mutex
	connected bool
	subs      map[string]func(*Message)
	handlers  map[string]func(*Message) []byte
	onClose   []func()
	inboxes   int
	published []*Message
}

func newMemBus() *memBus {
	return &memBus{
		connected: true,
		subs:      make(map[string]func(*Message)),
		handlers:  make(map[string]func(*Message) []byte),
	}
}

func (b *memBus) handle(subject string, fn func(*Message) []byte) {
	b.mu.Lock()
	b.handlers[subject] = fn
	b.mu.Unlock()
}

func (b *memBus) Publish(m *Message) error {
	b.mu.Lock()
	b.published = append(b.published, m)
	h, ok := b.handlers[m.Subject]
	b.mu.Unlock()

	if !ok {
		if m.Reply != "" {
			go b.deliver(&Message{
				Subject: m.Reply,
				Header:  map[string][]string{statusHeader: {"503"}},
			})
		}
		return nil
	}
	go func() {
		if data := h(m); data != nil && m.Reply != "" {
			b.deliver(&Message{Subject: m.Reply, Data: data})
		}
	}()
	return nil
}

func (b *memBus) deliver(m *Message) {
	b.mu.Lock()
	var fns []func(*Message)
	for prefix, fn := range b.subs {
		if strings.HasPrefix(m.Subject, prefix) {
			fns = append(fns, fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

func (b *memBus) Subscribe(subject string, fn func(*Message)) (func() error, error) {
	prefix := strings.TrimSuffix(subject, "*")
	b.mu.Lock()
	b.subs[prefix] = fn
	b.mu.Unlock()
	return func() error {
		b.mu.Lock()
		delete(b.subs, prefix)
		b.mu.Unlock()
		return nil
	}, nil
}

func (b *memBus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *memBus) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

func (b *memBus) NewInbox() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inboxes++
	return fmt.Sprintf("_INBOX.mem%d", b.inboxes)
}

func (b *memBus) OnClose(fn func()) {
	b.mu.Lock()
	b.onClose = append(b.onClose, fn)
	b.mu.Unlock()
}

// close simulates the connection giving up after its reconnect budget.
func (b *memBus) close() {
	b.mu.Lock()
	b.connected = false
	hooks := b.onClose
	b.onClose = nil
	b.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (b *memBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}
