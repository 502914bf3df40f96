// Package system ties one routing table to the root actors that use it.
//
// A System owns its [router.Router] and every actor spawned through it.
// Shutdown stops all of them in parallel and waits until each loop has
// exited, so no handler runs after Shutdown returns.
//
// # Basic Usage
//
//	sys := system.New(system.Config{Log: logger})
//
//	printer, err := sys.Spawn(actor.Options{
//	    ID: "printer",
//	    Handler: func(msg mailbox.Message) {
//	        fmt.Println(string(msg.Payload))
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	printer.Subscribe(tagGreeting)
//
//	sys.Router().Publish(mailbox.NewMessage(tagGreeting, []byte("hello")))
//
//	// Graceful shutdown
//	sys.Shutdown(ctx)
package system
