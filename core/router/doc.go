// Package router provides the tag-keyed publish/subscribe routing table that
// actors share.
//
// A [Router] maps every tag to the mailboxes subscribed to it, and every
// (tag, mailbox) pair to an ordered list of callbacks:
//
//	tag -> mailbox -> []mailbox.Callback
//
// [Router.Publish] fans a message out to every subscribed mailbox, attaching
// that mailbox's callback list so the receiving loop knows what to invoke.
// Delivery is best-effort and never blocks: a full destination simply misses
// that message (at-most-once). The publisher is not told.
//
// # Subscribing
//
//	r := router.New(router.WithLogger(log))
//	res := r.Subscribe(42, inbox, mailbox.Callback{ID: "audit", Fn: onAudit})
//
// [Router.Subscribe] reports whether it created the (tag, mailbox) entry,
// appended to it, or found a callback with the same ID already present.
// Removing the last callback of an entry removes the entry; removing the last
// entry of a tag removes the tag.
//
// # Concurrency
//
// All table access goes through one read/write lock. Callback lists are
// copy-on-write, so a list attached to an in-flight message is never mutated
// afterwards. Posting into destination mailboxes happens outside the lock.
package router
