package mailbox

// Tag is the discriminator used to route published messages.
type Tag uint16

type (
	// Message is the only thing that crosses the mailbox boundary: a tag, a
	// payload whose length must not exceed the target mailbox's slot size, and
	// the callback list attached by the router when the message was published.
	Message struct {
		Tag     Tag
		Payload []byte

		callbacks []Callback
	}

	// Callback is a type-erased message handler. Fn usually closes over the
	// receiving actor; ID identifies it within one routing list.
	Callback struct {
		ID string
		Fn func(Message)
	}
)

// NewMessage creates an unrouted message.
func NewMessage(tag Tag, payload []byte) Message {
	return Message{Tag: tag, Payload: payload}
}

// Len returns the payload length.
func (m Message) Len() int { return len(m.Payload) }

// Callbacks returns the callback list attached at publish time, nil for
// messages that were posted directly.
func (m Message) Callbacks() []Callback { return m.callbacks }

// IsRouted reports whether a callback list is attached.
func (m Message) IsRouted() bool { return m.callbacks != nil }

// Routed returns a copy of m carrying cbs. The slice is shared, not copied;
// callers must treat it as immutable.
func (m Message) Routed(cbs []Callback) Message {
	m.callbacks = cbs
	return m
}

// Invoke calls the callback with msg.
func (c Callback) Invoke(msg Message) { c.Fn(msg) }
