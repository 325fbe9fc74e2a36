package rpc

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NatsOptions configures one downstream connection.
type NatsOptions struct {
	URL            string
	Name           string        // client name shown in server monitoring
	MaxReconnects  int           // attempts before the connection is closed for good
	ReconnectWait  time.Duration // fixed wait between attempts
	ConnectTimeout time.Duration
}

// NatsBus adapts a *nats.Conn to Bus. The connection is long-lived and shared
// by every call to its domain.
type NatsBus struct {
	nc *nats.Conn

	mu      sync.Mutex
	onClose []func()
}

// DialNats connects to NATS. If the server is unreachable at start the
// connection keeps retrying in the background under the same reconnect
// policy; calls fail fast with ErrDisconnected in the meantime.
func DialNats(opts NatsOptions) (*NatsBus, error) {
	b := &NatsBus{}
	lg := log.With().Str("component", "nats").Str("conn", opts.Name).Logger()

	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.Timeout(opts.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			lg.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			lg.Error().Msg("nats connection closed")
			b.fireClose()
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := lg.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}
			ev.Msg("nats async error")
		}),
	)
	if err != nil {
		return nil, err
	}
	b.nc = nc
	return b, nil
}

// Publish implements Bus.
func (b *NatsBus) Publish(m *Message) error {
	return b.nc.PublishMsg(&nats.Msg{
		Subject: m.Subject,
		Reply:   m.Reply,
		Header:  nats.Header(m.Header),
		Data:    m.Data,
	})
}

// Subscribe implements Bus.
func (b *NatsBus) Subscribe(subject string, fn func(*Message)) (func() error, error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		fn(&Message{
			Subject: msg.Subject,
			Reply:   msg.Reply,
			Header:  map[string][]string(msg.Header),
			Data:    msg.Data,
		})
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// Connected implements Bus.
func (b *NatsBus) Connected() bool { return b.nc.IsConnected() }

// NewInbox implements Bus.
func (b *NatsBus) NewInbox() string { return nats.NewInbox() }

// OnClose implements Bus.
func (b *NatsBus) OnClose(fn func()) {
	b.mu.Lock()
	b.onClose = append(b.onClose, fn)
	b.mu.Unlock()
}

// Status reports the connection state ("CONNECTED", "RECONNECTING", ...).
func (b *NatsBus) Status() string { return b.nc.Status().String() }

// Close drains the connection; pending calls are failed by the close hook.
func (b *NatsBus) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return err
	}
	return nil
}

func (b *NatsBus) fireClose() {
	b.mu.Lock()
	hooks := b.onClose
	b.onClose = nil
	b.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
