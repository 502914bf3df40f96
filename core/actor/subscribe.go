package actor

import (
	"github.com/codewandler/postbox-go/core/mailbox"
	"github.com/codewandler/postbox-go/core/router"
)

const defaultHandlerName = "default"

// SubscribeOption selects the receiver and handler of a subscription.
type SubscribeOption func(*subscribeOpts)

type subscribeOpts struct {
	receiver *Actor
	name     string
	fn       Handler
}

// To subscribes on behalf of receiver: its mailbox gets the messages and,
// unless Via is given, its default handler runs.
func To(receiver *Actor) SubscribeOption {
	return func(o *subscribeOpts) {
		if receiver != nil {
			o.receiver = receiver
		}
	}
}

// Via subscribes fn instead of the default handler. name identifies the
// handler on the receiver; subscribing the same name twice is a duplicate.
func Via(name string, fn Handler) SubscribeOption {
	return func(o *subscribeOpts) {
		o.name = name
		o.fn = fn
	}
}

// Subscribe registers a callback for tag. Without options the actor's own
// default handler is subscribed to its own mailbox.
func (a *Actor) Subscribe(tag mailbox.Tag, opts ...SubscribeOption) router.SubscribeResult {
	o := subscribeOpts{receiver: a}
	for _, opt := range opts {
		opt(&o)
	}

	cb := o.receiver.defaultCallback()
	if o.fn != nil {
		cb = mailbox.Callback{Fn: o.fn}
		if o.name != "" {
			cb.ID = callbackID(o.receiver, o.name)
		}
	}
	return a.router.Subscribe(tag, o.receiver.mailbox, cb)
}

// Unsubscribe removes every callback registered for tag on receiver's
// mailbox; nil means this actor. Actors sharing one mailbox share that list.
// It returns false if nothing is subscribed to tag.
func (a *Actor) Unsubscribe(tag mailbox.Tag, receiver *Actor) bool {
	if receiver == nil {
		receiver = a
	}
	return a.router.Unsubscribe(tag, receiver.mailbox)
}

// UnsubscribeHandler removes only the handler subscribed under name (use
// "default" for the default handler), leaving other callbacks on the same
// mailbox in place.
func (a *Actor) UnsubscribeHandler(tag mailbox.Tag, receiver *Actor, name string) bool {
	if receiver == nil {
		receiver = a
	}
	return a.router.UnsubscribeCallback(tag, receiver.mailbox, callbackID(receiver, name))
}

func callbackID(receiver *Actor, name string) string {
	return receiver.id + "/" + name
}
