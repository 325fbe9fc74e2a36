package rpc

// Message is a bus message independent of the concrete transport.
type Message struct {
	Subject string
	Reply   string
	Header  map[string][]string
	Data    []byte
}

// Bus is the part of the message bus the gateway needs. Implementations must
// be safe for concurrent use.
type Bus interface {
	// Publish sends msg; a non-empty Reply asks responders to answer there.
	Publish(msg *Message) error
	// Subscribe delivers every message matching subject (wildcards allowed)
	// to fn. The returned func removes the subscription.
	Subscribe(subject string, fn func(*Message)) (unsubscribe func() error, err error)
	// Connected reports whether publishes can currently reach the bus.
	Connected() bool
	// NewInbox returns a unique subject prefix for replies.
	NewInbox() string
	// OnClose registers fn to run once the connection is permanently closed.
	OnClose(fn func())
}

// statusHeader is set by NATS on "no responders" notifications.
const statusHeader = "Status"

func isNoResponders(m *Message) bool {
	if m == nil || len(m.Data) != 0 {
		return false
	}
	v := m.Header[statusHeader]
	return len(v) > 0 && v[0] == "503"
}
