// Package actor runs message handlers on per-actor receive loops and connects
// them through a shared [router.Router].
//
// A root actor owns a mailbox and a worker goroutine. A child actor shares
// its parent's mailbox and goroutine, so parent and children are processed
// sequentially on one loop, in arrival order.
//
//	r := router.New()
//	a := actor.New(r, actor.Options{
//	    ID: "logger",
//	    Handler: func(msg mailbox.Message) {
//	        fmt.Println(string(msg.Payload))
//	    },
//	})
//	_ = a.Start()
//	defer a.Stop(ctx)
//
// # Dispatch
//
// The receive loop blocks on the mailbox. A message that was published through
// the router carries the callback list of the subscription and every callback
// runs in order. A message that was posted directly runs the actor's default
// handler. Panics are recovered per invocation; the loop keeps going.
//
// # Publish / Subscribe
//
//	a.Subscribe(tagTick)                          // a's default handler
//	a.Subscribe(tagTick, actor.To(b))             // b's default handler
//	a.Subscribe(tagTick, actor.To(b), actor.Via("onTick", b.onTick))
//	a.Publish(mailbox.NewMessage(tagTick, nil))
//
// Publishing is fire-and-forget: a subscriber whose mailbox is full misses
// the message and nobody is told.
//
// # Stopping
//
// [Actor.Stop] removes the actor's subscriptions, stops the loop, waits for the
// goroutine to exit and then closes the mailbox, dropping whatever is still
// queued. Handlers that want to end their own actor call [Actor.RequestStop]
// instead, which does not wait.
package actor
