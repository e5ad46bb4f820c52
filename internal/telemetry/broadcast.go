package telemetry

import (
	"context"
	"strings"
)

// subscriber is one broadcaster client's server-side state: the channel a
// client goroutine reads from, the set of cycler names it currently wants
// (empty means every cycler), and a coalesced backlog of keys that arrived
// while its channel was still full of an undelivered snapshot.
type subscriber struct {
	ch      chan Snapshot
	filter  []string
	pending Snapshot
}

func (s *subscriber) accepts(key string) bool {
	if len(s.filter) == 0 {
		return true
	}
	for _, name := range s.filter {
		if strings.HasPrefix(key, name+".") {
			return true
		}
	}
	return false
}

func (s *subscriber) filtered(snap Snapshot) Snapshot {
	if len(s.filter) == 0 {
		return snap
	}
	out := Snapshot{}
	for k, v := range snap {
		if s.accepts(k) {
			out[k] = v
		}
	}
	return out
}

func (s *subscriber) mergeIntoPending(out Snapshot) {
	if len(out) == 0 {
		return
	}
	if s.pending == nil {
		s.pending = Snapshot{}
	}
	for k, v := range out {
		s.pending[k] = v
	}
}

type filterUpdate struct {
	ch     chan Snapshot
	filter []string
}

type drainRequest struct {
	ch   chan Snapshot
	resp chan Snapshot
}

// broadcaster fans a single upstream Snapshot stream out to however many
// websocket clients are currently connected, each filtered to the cyclers
// it subscribed to. A subscriber whose channel is still full of an
// undelivered snapshot has the new one merged into its pending backlog
// instead of dropped, so bursts the client couldn't keep up with arrive
// coalesced into one flush rather than lost.
type broadcaster struct {
	subscribeReq   chan chan Snapshot
	unsubscribeReq chan chan Snapshot
	filterReq      chan filterUpdate
	drainReq       chan drainRequest
}

func newBroadcaster(ctx context.Context, in <-chan Snapshot) *broadcaster {
	b := &broadcaster{
		subscribeReq:   make(chan chan Snapshot),
		unsubscribeReq: make(chan chan Snapshot),
		filterReq:      make(chan filterUpdate),
		drainReq:       make(chan drainRequest),
	}
	go b.run(ctx, in)
	return b
}

func (b *broadcaster) run(ctx context.Context, in <-chan Snapshot) {
	subs := map[chan Snapshot]*subscriber{}
	for {
		select {
		case <-ctx.Done():
			return

		case ch := <-b.subscribeReq:
			subs[ch] = &subscriber{ch: ch}

		case ch := <-b.unsubscribeReq:
			delete(subs, ch)
			close(ch)

		case upd := <-b.filterReq:
			if s, ok := subs[upd.ch]; ok {
				s.filter = upd.filter
			}

		case req := <-b.drainReq:
			s, ok := subs[req.ch]
			if !ok || s.pending == nil {
				req.resp <- nil
				continue
			}
			req.resp <- s.pending
			s.pending = nil

		case snap, ok := <-in:
			if !ok {
				return
			}
			for ch, s := range subs {
				out := s.filtered(snap)
				if len(out) == 0 {
					continue
				}
				select {
				case ch <- out:
				default:
					s.mergeIntoPending(out)
				}
			}
		}
	}
}

// subscriberHandle is a client goroutine's view of its broadcaster
// subscription: the snapshot channel to read from directly, plus the
// filter-update and coalesced-backlog requests routed through the
// broadcaster's single owning goroutine.
type subscriberHandle struct {
	b  *broadcaster
	ch chan Snapshot
}

// Subscribe registers a new subscriber and returns a handle to it.
func (b *broadcaster) Subscribe() *subscriberHandle {
	ch := make(chan Snapshot, 1)
	b.subscribeReq <- ch
	return &subscriberHandle{b: b, ch: ch}
}

// SetFilter narrows the cyclers this subscriber receives keys from; an
// empty list resets it to every cycler.
func (h *subscriberHandle) SetFilter(cyclers []string) {
	h.b.filterReq <- filterUpdate{ch: h.ch, filter: cyclers}
}

// Drain returns the next snapshot due to this subscriber: whatever is
// sitting in its direct channel, merged with any coalesced backlog, so a
// caller polling on an interval sees the union of everything it missed.
// The second return is false if there is nothing to deliver.
func (h *subscriberHandle) Drain() (Snapshot, bool) {
	var snap Snapshot
	select {
	case s, ok := <-h.ch:
		if !ok {
			return nil, false
		}
		snap = s
	default:
	}

	resp := make(chan Snapshot, 1)
	h.b.drainReq <- drainRequest{ch: h.ch, resp: resp}
	if pending := <-resp; pending != nil {
		if snap == nil {
			snap = pending
		} else {
			for k, v := range pending {
				snap[k] = v
			}
		}
	}

	if snap == nil {
		return nil, false
	}
	return snap, true
}

// Close unsubscribes the handle, releasing it from future broadcasts.
func (h *subscriberHandle) Close() {
	h.b.unsubscribeReq <- h.ch
}
