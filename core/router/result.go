package router

// SubscribeResult reports what Subscribe did to the routing table.
type SubscribeResult int

const (
	// SubscribedNew means the (tag, mailbox) entry was created by this call.
	SubscribedNew SubscribeResult = iota + 1
	// SubscribedAppended means the callback was added to an existing entry.
	SubscribedAppended
	// SubscribedDuplicate means a callback with the same ID was already
	// registered for the (tag, mailbox) pair; nothing changed.
	SubscribedDuplicate
)

func (r SubscribeResult) String() string {
	switch r {
	case SubscribedNew:
		return "new"
	case SubscribedAppended:
		return "appended"
	case SubscribedDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Added reports whether the callback is now part of the table because of this call.
func (r SubscribeResult) Added() bool {
	return r == SubscribedNew || r == SubscribedAppended
}
