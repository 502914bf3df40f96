package mailbox

import "errors"

var (
	ErrMailboxFull     = errors.New("mailbox full")
	ErrMailboxClosed   = errors.New("mailbox closed")
	ErrPayloadTooLarge = errors.New("payload exceeds mailbox slot size")
)

// Drop reasons reported to [Metrics.MessageDropped].
const (
	DropFull     = "full"
	DropClosed   = "closed"
	DropTooLarge = "too_large"
)
