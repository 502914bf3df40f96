// Package mailbox provides a bounded, thread-safe FIFO of fixed-capacity
// messages with non-blocking send and three receive modes.
//
// Every mailbox is created with a fixed payload capacity (SlotSize) and a
// fixed maximum depth. Sending never blocks: a full mailbox rejects the
// message immediately and the caller decides what to do about it.
//
//	mb := mailbox.New(mailbox.Options{SlotSize: 128, Depth: 16})
//	ok := mb.Post(mailbox.NewMessage(7, []byte("hello")))
//
// # Receiving
//
// [Mailbox.Pend] dequeues the oldest message in one of three modes:
//
//   - [NoWait]: return immediately, false when empty
//   - [WaitForever]: block until a message is available
//   - any positive duration: block at most that long
//
// [Mailbox.Receive] waits like [WaitForever] but also returns when the given
// context is done, which is what actor receive loops use to stop.
//
// # Ownership
//
// The mailbox copies the payload into a buffer owned by the queue slot when a
// message is sent, and hands the receiver its own copy on dequeue. Senders may
// reuse their buffers as soon as Send returns.
//
// # Closing
//
// [Mailbox.Close] rejects further sends, wakes every blocked receiver and
// silently drops whatever is still queued. No handler runs for dropped
// messages.
package mailbox
