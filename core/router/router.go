package router

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/postbox-go/core/mailbox"
)

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger. Drops and table changes are logged at debug level.
func WithLogger(log *slog.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.log = log.With(slog.String("component", "router"))
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// route is one (tag, mailbox) entry. cbs is never modified in place.
type route struct {
	dest *mailbox.Mailbox
	cbs  []mailbox.Callback
}

// Route is a read-only view of one (tag, mailbox) entry, see [Router.Snapshot].
type Route struct {
	Tag         mailbox.Tag
	Mailbox     *mailbox.Mailbox
	CallbackIDs []string
}

// Router is the routing table. Create one per system with New and share it
// between the actors of that system.
type Router struct {
	log     *slog.Logger
	metrics Metrics

	mu      sync.RWMutex
	tags    map[mailbox.Tag][]route
	entries int
}

func New(opts ...Option) *Router {
	r := &Router{
		log:     slog.New(slog.DiscardHandler),
		metrics: NopMetrics(),
		tags:    make(map[mailbox.Tag][]route),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe appends cb to the callback list of (tag, dest). Callbacks of one
// list run in subscription order. A callback without ID gets a generated one.
func (r *Router) Subscribe(tag mailbox.Tag, dest *mailbox.Mailbox, cb mailbox.Callback) SubscribeResult {
	if dest == nil {
		panic("router: subscribe with nil mailbox")
	}
	if cb.Fn == nil {
		panic("router: subscribe with nil callback")
	}
	if cb.ID == "" {
		cb.ID = gonanoid.Must()
	}

	r.mu.Lock()
	routes := r.tags[tag]
	var res SubscribeResult
	switch i := indexOf(routes, dest); {
	case i < 0:
		r.tags[tag] = append(routes, route{dest: dest, cbs: []mailbox.Callback{cb}})
		r.entries++
		res = SubscribedNew
	case slices.ContainsFunc(routes[i].cbs, func(c mailbox.Callback) bool { return c.ID == cb.ID }):
		res = SubscribedDuplicate
	default:
		cbs := make([]mailbox.Callback, 0, len(routes[i].cbs)+1)
		routes[i].cbs = append(append(cbs, routes[i].cbs...), cb)
		res = SubscribedAppended
	}
	entries := r.entries
	r.mu.Unlock()

	r.metrics.Subscriptions(entries)
	r.log.Debug(
		"subscribe",
		slog.Int("tag", int(tag)),
		slog.String("mailbox", dest.Name()),
		slog.String("callback", cb.ID),
		slog.String("result", res.String()),
	)
	return res
}

// Unsubscribe removes the whole callback list of (tag, dest). It returns false
// if nothing is subscribed to tag.
func (r *Router) Unsubscribe(tag mailbox.Tag, dest *mailbox.Mailbox) bool {
	r.mu.Lock()
	routes, ok := r.tags[tag]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if i := indexOf(routes, dest); i >= 0 {
		r.removeLocked(tag, routes, i)
	}
	entries := r.entries
	r.mu.Unlock()

	r.metrics.Subscriptions(entries)
	r.log.Debug("unsubscribe", slog.Int("tag", int(tag)), slog.String("mailbox", dest.Name()))
	return true
}

// UnsubscribeCallback removes the callback with the given ID from (tag, dest).
// It reports whether a callback was removed.
func (r *Router) UnsubscribeCallback(tag mailbox.Tag, dest *mailbox.Mailbox, id string) bool {
	r.mu.Lock()
	routes := r.tags[tag]
	i := indexOf(routes, dest)
	j := -1
	if i >= 0 {
		j = slices.IndexFunc(routes[i].cbs, func(c mailbox.Callback) bool { return c.ID == id })
	}
	if j < 0 {
		r.mu.Unlock()
		return false
	}

	if len(routes[i].cbs) == 1 {
		r.removeLocked(tag, routes, i)
	} else {
		cbs := make([]mailbox.Callback, 0, len(routes[i].cbs)-1)
		cbs = append(cbs, routes[i].cbs[:j]...)
		routes[i].cbs = append(cbs, routes[i].cbs[j+1:]...)
	}
	entries := r.entries
	r.mu.Unlock()

	r.metrics.Subscriptions(entries)
	r.log.Debug(
		"unsubscribe callback",
		slog.Int("tag", int(tag)),
		slog.String("mailbox", dest.Name()),
		slog.String("callback", id),
	)
	return true
}

// UnsubscribeMailbox removes dest from every tag and returns the number of
// removed (tag, mailbox) entries.
func (r *Router) UnsubscribeMailbox(dest *mailbox.Mailbox) int {
	r.mu.Lock()
	removed := 0
	for tag, routes := range r.tags {
		if i := indexOf(routes, dest); i >= 0 {
			r.removeLocked(tag, routes, i)
			removed++
		}
	}
	entries := r.entries
	r.mu.Unlock()

	if removed > 0 {
		r.metrics.Subscriptions(entries)
		r.log.Debug("unsubscribe mailbox", slog.String("mailbox", dest.Name()), slog.Int("entries", removed))
	}
	return removed
}

// Publish posts msg to every mailbox subscribed to msg.Tag, each copy carrying
// that mailbox's callback list. It never blocks: a destination that cannot
// take the message misses it. Entries of closed mailboxes are removed. Publish returns the number of mailboxes that
// accepted the message; callers are free to ignore it.
func (r *Router) Publish(msg mailbox.Message) int {
	r.mu.RLock()
	routes := slices.Clone(r.tags[msg.Tag])
	r.mu.RUnlock()

	tag := uint16(msg.Tag)
	r.metrics.Published(tag)

	var closed []*mailbox.Mailbox
	delivered := 0
	for _, rt := range routes {
		if err := rt.dest.Send(msg.Routed(rt.cbs)); err != nil {
			if errors.Is(err, mailbox.ErrMailboxClosed) {
				closed = append(closed, rt.dest)
			}
			r.metrics.Dropped(tag)
			r.log.Debug(
				"delivery dropped",
				slog.Int("tag", int(tag)),
				slog.String("mailbox", rt.dest.Name()),
				slog.Any("error", err),
			)
			continue
		}
		r.metrics.Delivered(tag)
		delivered++
	}

	if len(closed) > 0 {
		r.prune(msg.Tag, closed)
	}
	return delivered
}

// Snapshot returns a consistent copy of the table ordered by tag, then by
// subscription order.
func (r *Router) Snapshot() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Route, 0, r.entries)
	for _, tag := range r.sortedTagsLocked() {
		for _, rt := range r.tags[tag] {
			ids := make([]string, len(rt.cbs))
			for i, cb := range rt.cbs {
				ids[i] = cb.ID
			}
			out = append(out, Route{Tag: tag, Mailbox: rt.dest, CallbackIDs: ids})
		}
	}
	return out
}

// Tags returns the currently subscribed tags in ascending order.
func (r *Router) Tags() []mailbox.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedTagsLocked()
}

// Len returns the number of (tag, mailbox) entries.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}

// ---- internals ----

// prune drops the (tag, dest) entries of mailboxes that were found closed.
func (r *Router) prune(tag mailbox.Tag, dests []*mailbox.Mailbox) {
	r.mu.Lock()
	removed := 0
	for _, dest := range dests {
		if i := indexOf(r.tags[tag], dest); i >= 0 {
			r.removeLocked(tag, r.tags[tag], i)
			removed++
		}
	}
	entries := r.entries
	r.mu.Unlock()

	if removed > 0 {
		r.metrics.Subscriptions(entries)
		r.log.Debug("pruned closed mailboxes", slog.Int("tag", int(tag)), slog.Int("entries", removed))
	}
}

func (r *Router) removeLocked(tag mailbox.Tag, routes []route, i int) {
	routes = slices.Delete(routes, i, i+1)
	r.entries--
	if len(routes) == 0 {
		delete(r.tags, tag)
		return
	}
	r.tags[tag] = routes
}

func (r *Router) sortedTagsLocked() []mailbox.Tag {
	tags := make([]mailbox.Tag, 0, len(r.tags))
	for tag := range r.tags {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func indexOf(routes []route, dest *mailbox.Mailbox) int {
	return slices.IndexFunc(routes, func(rt route) bool { return rt.dest == dest })
}
