package router

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/postbox-go/core/mailbox"
)

func nopCallback(id string) mailbox.Callback {
	return mailbox.Callback{ID: id, Fn: func(mailbox.Message) {}}
}

func callbackIDs(msg mailbox.Message) []string {
	ids := make([]string, 0, len(msg.Callbacks()))
	for _, cb := range msg.Callbacks() {
		ids = append(ids, cb.ID)
	}
	return ids
}

func TestRouter_subscribe_results(t *testing.T) {
	r := New()
	mb := mailbox.New(mailbox.Options{Name: "a"})

	require.Equal(t, SubscribedNew, r.Subscribe(1, mb, nopCallback("x")))
	require.Equal(t, SubscribedAppended, r.Subscribe(1, mb, nopCallback("y")))
	require.Equal(t, SubscribedDuplicate, r.Subscribe(1, mb, nopCallback("x")))
	require.Equal(t, SubscribedNew, r.Subscribe(2, mb, nopCallback("x")))

	// anonymous callbacks never collide
	require.Equal(t, SubscribedAppended, r.Subscribe(1, mb, mailbox.Callback{Fn: func(mailbox.Message) {}}))
	require.Equal(t, SubscribedAppended, r.Subscribe(1, mb, mailbox.Callback{Fn: func(mailbox.Message) {}}))

	require.Equal(t, 2, r.Len())
	require.Equal(t, []mailbox.Tag{1, 2}, r.Tags())

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	require.Len(t, snap[0].CallbackIDs, 4)
	require.Equal(t, []string{"x", "y"}, snap[0].CallbackIDs[:2])
	require.Equal(t, []string{"x"}, snap[1].CallbackIDs)
}

func TestRouter_subscribe_panics(t *testing.T) {
	r := New()
	require.Panics(t, func() { r.Subscribe(1, nil, nopCallback("x")) })
	require.Panics(t, func() { r.Subscribe(1, mailbox.New(mailbox.Options{}), mailbox.Callback{ID: "x"}) })
}

func TestRouter_publish_fan_out(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{Name: "a", Depth: 4})
	b := mailbox.New(mailbox.Options{Name: "b", Depth: 4})

	r.Subscribe(7, a, nopCallback("a1"))
	r.Subscribe(7, a, nopCallback("a2"))
	r.Subscribe(7, b, nopCallback("b1"))

	require.Equal(t, 2, r.Publish(mailbox.NewMessage(7, []byte("evt"))))
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())

	msgA, ok := a.Pend(mailbox.NoWait)
	require.True(t, ok)
	require.Equal(t, []string{"a1", "a2"}, callbackIDs(msgA))
	require.Equal(t, "evt", string(msgA.Payload))

	msgB, ok := b.Pend(mailbox.NoWait)
	require.True(t, ok)
	require.Equal(t, []string{"b1"}, callbackIDs(msgB))
}

func TestRouter_publish_unknown_tag(t *testing.T) {
	r := New()
	require.Equal(t, 0, r.Publish(mailbox.NewMessage(99, nil)))
}

func TestRouter_publish_full_destination(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{Name: "a", Depth: 1})
	b := mailbox.New(mailbox.Options{Name: "b", Depth: 1})
	r.Subscribe(7, a, nopCallback("a"))
	r.Subscribe(7, b, nopCallback("b"))

	require.True(t, b.Post(mailbox.NewMessage(1, nil)))

	require.Equal(t, 1, r.Publish(mailbox.NewMessage(7, nil)))
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())

	msg, _ := b.Pend(mailbox.NoWait)
	require.Equal(t, mailbox.Tag(1), msg.Tag, "b keeps only its earlier message")
}

func TestRouter_publish_payload_too_large_for_one_leg(t *testing.T) {
	r := New()
	small := mailbox.New(mailbox.Options{SlotSize: 2})
	large := mailbox.New(mailbox.Options{SlotSize: 16})
	r.Subscribe(1, small, nopCallback("s"))
	r.Subscribe(1, large, nopCallback("l"))

	require.Equal(t, 1, r.Publish(mailbox.NewMessage(1, []byte("too long"))))
	require.Equal(t, 0, small.Len())
	require.Equal(t, 1, large.Len())
}

func TestRouter_unsubscribe(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{Name: "a"})
	b := mailbox.New(mailbox.Options{Name: "b"})

	require.False(t, r.Unsubscribe(7, a), "unknown tag")

	r.Subscribe(7, a, nopCallback("a"))
	r.Subscribe(7, b, nopCallback("b1"))
	r.Subscribe(7, b, nopCallback("b2"))

	require.True(t, r.Unsubscribe(7, a))
	require.Equal(t, 1, r.Publish(mailbox.NewMessage(7, nil)))
	require.Equal(t, 0, a.Len())
	require.Equal(t, 1, b.Len())

	require.True(t, r.Unsubscribe(7, b))
	require.Empty(t, r.Tags(), "tag entry pruned")
	require.Equal(t, 0, r.Len())
	require.False(t, r.Unsubscribe(7, b))

	// a fresh subscription starts from an empty list
	require.Equal(t, SubscribedNew, r.Subscribe(7, b, nopCallback("b3")))
	require.Equal(t, []string{"b3"}, r.Snapshot()[0].CallbackIDs)
}

func TestRouter_unsubscribe_tag_exists_other_mailbox(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{})
	b := mailbox.New(mailbox.Options{})
	r.Subscribe(7, a, nopCallback("a"))

	require.True(t, r.Unsubscribe(7, b))
	require.Equal(t, 1, r.Len())
}

func TestRouter_unsubscribe_callback(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{})
	r.Subscribe(7, a, nopCallback("x"))
	r.Subscribe(7, a, nopCallback("y"))

	require.False(t, r.UnsubscribeCallback(7, a, "nope"))
	require.False(t, r.UnsubscribeCallback(8, a, "x"))

	require.True(t, r.UnsubscribeCallback(7, a, "x"))
	require.Equal(t, []string{"y"}, r.Snapshot()[0].CallbackIDs)

	require.True(t, r.UnsubscribeCallback(7, a, "y"))
	require.Empty(t, r.Tags())
}

func TestRouter_unsubscribe_mailbox(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{})
	b := mailbox.New(mailbox.Options{})
	for tag := mailbox.Tag(1); tag <= 3; tag++ {
		r.Subscribe(tag, a, nopCallback("a"))
	}
	r.Subscribe(2, b, nopCallback("b"))

	require.Equal(t, 3, r.UnsubscribeMailbox(a))
	require.Equal(t, []mailbox.Tag{2}, r.Tags())
	require.Equal(t, 0, r.UnsubscribeMailbox(a))
}

func TestRouter_attached_list_is_immutable(t *testing.T) {
	r := New()
	a := mailbox.New(mailbox.Options{Depth: 4})
	r.Subscribe(1, a, nopCallback("x"))
	r.Publish(mailbox.NewMessage(1, nil))

	r.Subscribe(1, a, nopCallback("y"))
	r.UnsubscribeCallback(1, a, "x")

	msg, ok := a.Pend(mailbox.NoWait)
	require.True(t, ok)
	require.Equal(t, []string{"x"}, callbackIDs(msg))
}

func TestRouter_concurrent(t *testing.T) {
	const (
		workers = 8
		ops     = 2_000
		tags    = 4
	)
	r := New()

	mbs := make([]*mailbox.Mailbox, workers)
	index := make(map[*mailbox.Mailbox]int, workers)
	for i := range mbs {
		mbs[i] = mailbox.New(mailbox.Options{Name: fmt.Sprintf("mb-%d", i), SlotSize: 8, Depth: 8})
		index[mbs[i]] = i
	}

	// each worker only touches its own mailbox, so it can track the exact
	// callback lists the table must hold for it
	models := make([]map[mailbox.Tag][]string, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rnd := rand.New(rand.NewPCG(uint64(w), 42))
			mb := mbs[w]
			model := make(map[mailbox.Tag][]string)
			payload := make([]byte, 8)
			for i := 0; i < ops; i++ {
				tag := mailbox.Tag(rnd.IntN(tags))
				id := fmt.Sprintf("w%d-%d", w, rnd.IntN(3))
				switch rnd.IntN(4) {
				case 0:
					want := SubscribedAppended
					switch {
					case len(model[tag]) == 0:
						want = SubscribedNew
						model[tag] = []string{id}
					case slices.Contains(model[tag], id):
						want = SubscribedDuplicate
					default:
						model[tag] = append(model[tag], id)
					}
					assert.Equal(t, want, r.Subscribe(tag, mb, nopCallback(id)))
				case 1:
					r.Unsubscribe(tag, mb)
					delete(model, tag)
				case 2:
					j := slices.Index(model[tag], id)
					assert.Equal(t, j >= 0, r.UnsubscribeCallback(tag, mb, id))
					if j >= 0 {
						model[tag] = slices.Delete(model[tag], j, j+1)
						if len(model[tag]) == 0 {
							delete(model, tag)
						}
					}
				default:
					binary.BigEndian.PutUint32(payload[0:4], uint32(i))
					binary.BigEndian.PutUint32(payload[4:8], uint32(i))
					r.Publish(mailbox.NewMessage(tag, payload))
				}

				// drain our own mailbox and check for torn payloads
				for {
					msg, ok := mb.Pend(mailbox.NoWait)
					if !ok {
						break
					}
					assert.Equal(t, msg.Payload[0:4], msg.Payload[4:8])
				}
			}
			models[w] = model
		}(w)
	}
	wg.Wait()

	// final consistency: no empty entries, no duplicates, exactly the modeled lists
	snap := r.Snapshot()
	require.Equal(t, r.Len(), len(snap))

	got := make([]map[mailbox.Tag][]string, workers)
	for w := range got {
		got[w] = make(map[mailbox.Tag][]string)
	}
	for _, rt := range snap {
		w, ok := index[rt.Mailbox]
		require.True(t, ok, "unknown mailbox %s", rt.Mailbox.Name())
		require.NotEmpty(t, rt.CallbackIDs)
		_, dup := got[w][rt.Tag]
		require.False(t, dup, "duplicate entry %d/%s", rt.Tag, rt.Mailbox.Name())
		got[w][rt.Tag] = rt.CallbackIDs
	}
	for w := range models {
		require.Equal(t, models[w], got[w], "table for %s", mbs[w].Name())
	}
}

func TestRouter_publish_prunes_closed_mailbox(t *testing.T) {
	r := New()
	open := mailbox.New(mailbox.Options{Name: "open"})
	closed := mailbox.New(mailbox.Options{Name: "closed"})
	closed.Close()

	r.Subscribe(7, closed, nopCallback("c"))
	r.Subscribe(7, open, nopCallback("o"))
	r.Subscribe(8, closed, nopCallback("c"))
	require.Equal(t, 3, r.Len())

	require.Equal(t, 1, r.Publish(mailbox.NewMessage(7, nil)))
	require.Equal(t, 2, r.Len())
	require.Equal(t, []mailbox.Tag{7, 8}, r.Tags(), "only the published tag is pruned")
	require.Same(t, open, r.Snapshot()[0].Mailbox)

	require.Equal(t, 0, r.Publish(mailbox.NewMessage(8, nil)))
	require.Equal(t, []mailbox.Tag{7}, r.Tags())
}

// lenMetrics reads the table from inside the metrics hook, which deadlocks
// if the hook runs under the router lock.
type lenMetrics struct {
	nopMetrics
	r      *Router
	seen   []int
	tables []int
}

func (m *lenMetrics) Subscriptions(count int) {
	m.seen = append(m.seen, count)
	m.tables = append(m.tables, m.r.Len())
}

func TestRouter_metrics_outside_lock(t *testing.T) {
	m := &lenMetrics{}
	r := New(WithMetrics(m))
	m.r = r
	a := mailbox.New(mailbox.Options{})
	closed := mailbox.New(mailbox.Options{})
	closed.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Subscribe(1, a, nopCallback("x"))
		r.Subscribe(1, a, nopCallback("y"))
		r.UnsubscribeCallback(1, a, "x")
		r.Subscribe(2, a, nopCallback("x"))
		r.Subscribe(2, closed, nopCallback("x"))
		r.Publish(mailbox.NewMessage(2, nil))
		r.Unsubscribe(2, a)
		r.UnsubscribeMailbox(a)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("metrics hook called under the router lock")
	}
	require.Equal(t, []int{1, 1, 1, 2, 3, 2, 1, 0}, m.seen)
	require.Equal(t, m.seen, m.tables)
}
