package ws

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/soleret/polyclob/config"
	"github.com/soleret/polyclob/errs"
	"github.com/soleret/polyclob/observability"
)

// ErrSlowConsumer is delivered on a subscription's error channel each time a
// message is dropped because the subscriber's buffer is full.
var ErrSlowConsumer = errors.New("ws: subscriber lagging, message dropped")

const errBuffer = 4

// Subscription is one consumer's view of a channel feed. Messages arrive on
// C; drops and terminal connection failures surface on Err.
type Subscription struct {
	reg    *registry
	key    string
	msgs   chan Message
	errc   chan error
	lagged atomic.Uint64
	once   sync.Once
}

// C returns the message stream. It is closed by Unsubscribe and when the
// client shuts down.
func (s *Subscription) C() <-chan Message { return s.msgs }

// Err reports dropped messages and terminal connection errors.
func (s *Subscription) Err() <-chan error { return s.errc }

// Lagged returns how many messages were dropped because the subscriber fell
// behind.
func (s *Subscription) Lagged() uint64 { return s.lagged.Load() }

// Unsubscribe detaches the consumer and, once no consumer shares the filter,
// tells the venue to stop the feed. It is safe to call more than once.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	var err error
	s.once.Do(func() { err = s.reg.unsubscribe(ctx, s) })
	return err
}

// entry is one upstream subscription: a canonical id filter shared by every
// consumer that asked for it. The venue sees a single subscribe frame per
// entry no matter how many consumers attach.
type entry struct {
	ids     []string
	idSet   map[string]struct{}
	refs    int
	handles []*Subscription
}

// registry multiplexes consumers over one channel connection. It owns the
// subscription state the connection replays after a reconnect.
//
// Lock order: registry.mu before conn.mu, never the reverse.
type registry struct {
	channel  Channel
	buffer   int
	interest interest
	authFn   func() *authPayload

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	conn    *conn
	metrics *streamMetrics
}

func newRegistry(ch Channel, cfg config.WSSettings, authFn func() *authPayload, metrics *streamMetrics) *registry {
	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &registry{
		channel:  ch,
		buffer:   buffer,
		interest: channelInterest(ch),
		authFn:   authFn,
		entries:  make(map[string]*entry),
		metrics:  metrics,
	}
}

// canonicalIDs trims, dedupes and sorts a filter so equal filters always map
// to the same entry.
func canonicalIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// subscribe attaches a consumer to the entry for ids, creating it (and
// sending the subscribe frame) when the filter is new. ids must already be
// canonical.
func (r *registry) subscribe(ctx context.Context, ids []string) (*Subscription, error) {
	key := strings.Join(ids, ",")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errs.New("ws.subscribe", errs.CodeWebSocket, errs.WithMessage("client is closed"))
	}

	sub := &Subscription{
		reg:  r,
		key:  key,
		msgs: make(chan Message, r.buffer),
		errc: make(chan error, errBuffer),
	}
	if e, ok := r.entries[key]; ok {
		e.refs++
		e.handles = append(e.handles, sub)
		r.metrics.adjustSubscriptions(ctx, 1)
		return sub, nil
	}

	e := &entry{
		ids:     ids,
		idSet:   make(map[string]struct{}, len(ids)),
		refs:    1,
		handles: []*Subscription{sub},
	}
	for _, id := range ids {
		e.idSet[id] = struct{}{}
	}
	r.entries[key] = e
	r.metrics.adjustSubscriptions(ctx, 1)
	if err := r.sendLocked(ctx, opSubscribe, e.ids); err != nil {
		// Best effort: the connection replays every live entry on reconnect.
		observability.Log().Warn("subscribe frame not delivered",
			observability.F("channel", string(r.channel)),
			observability.F("error", err.Error()))
	}
	return sub, nil
}

func (r *registry) unsubscribe(ctx context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	e, ok := r.entries[sub.key]
	if !ok {
		return nil
	}
	removed := false
	for i, h := range e.handles {
		if h == sub {
			e.handles = append(e.handles[:i], e.handles[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return nil
	}
	close(sub.msgs)
	e.refs--
	r.metrics.adjustSubscriptions(ctx, -1)
	if e.refs > 0 {
		return nil
	}
	delete(r.entries, sub.key)
	return r.sendLocked(ctx, opUnsubscribe, e.ids)
}

// replayAll re-sends the subscribe frame for every live entry. The connection
// calls it after each successful dial, before reporting open.
func (r *registry) replayAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, e := range r.entries {
		if err := r.sendLocked(ctx, opSubscribe, e.ids); err != nil {
			observability.Log().Warn("subscription replay failed",
				observability.F("channel", string(r.channel)),
				observability.F("error", err.Error()))
		}
	}
}

// sendLocked builds and sends one control frame, folding credentials in on
// the user channel. Callers hold r.mu.
func (r *registry) sendLocked(ctx context.Context, op string, ids []string) error {
	frame := newSubscribeFrame(r.channel, op, ids)
	if r.authFn != nil {
		frame.Auth = r.authFn()
	}
	return r.conn.send(ctx, frame)
}

// wants gates the frame decoder: events no live entry could receive are not
// worth parsing.
func (r *registry) wants(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return false
	}
	return r.interest.contains(event)
}

func (r *registry) dispatchFrame(ctx context.Context, data []byte) {
	msgs, err := decodeFrame(data, r.wants)
	if err != nil {
		observability.Log().Warn("dropping malformed frame",
			observability.F("channel", string(r.channel)),
			observability.F("error", err.Error()))
		return
	}
	for _, msg := range msgs {
		r.deliver(ctx, msg)
	}
}

// deliver fans one event out to every matching consumer. User-channel events
// are not filtered by market: the venue already scopes them to the
// authenticated account. Sends never block; a full buffer counts as a drop.
func (r *registry) deliver(ctx context.Context, msg Message) {
	ids := matchIDs(msg)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if r.channel != ChannelUser && !e.matches(ids) {
			continue
		}
		for _, sub := range e.handles {
			select {
			case sub.msgs <- msg:
			default:
				sub.lagged.Add(1)
				r.metrics.recordDrop(ctx)
				select {
				case sub.errc <- ErrSlowConsumer:
				default:
				}
			}
		}
	}
}

func (e *entry) matches(ids []string) bool {
	if len(e.idSet) == 0 {
		return true
	}
	for _, id := range ids {
		if _, ok := e.idSet[id]; ok {
			return true
		}
	}
	return false
}

// matchIDs lists the asset ids an event concerns, for market-channel routing.
func matchIDs(msg Message) []string {
	switch m := msg.(type) {
	case *BookUpdate:
		return []string{m.AssetID}
	case *PriceChange:
		ids := make([]string, 0, len(m.Changes))
		for _, ch := range m.Changes {
			ids = append(ids, ch.AssetID)
		}
		return ids
	case *TickSizeChange:
		return []string{m.AssetID}
	case *LastTradePrice:
		return []string{m.AssetID}
	case *BestBidAsk:
		return []string{m.AssetID}
	case *NewMarket:
		return m.AssetIDs
	case *MarketResolved:
		return m.AssetIDs
	default:
		return nil
	}
}

// shutdown ends every subscription with a terminal error. The connection
// calls it when reconnection is abandoned.
func (r *registry) shutdown(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, e := range r.entries {
		for _, sub := range e.handles {
			if err != nil {
				select {
				case sub.errc <- err:
				default:
				}
			}
			close(sub.msgs)
		}
	}
	r.entries = map[string]*entry{}
}

// close ends every subscription gracefully, telling the venue to stop each
// live feed first.
func (r *registry) close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, e := range r.entries {
		if err := r.sendLocked(ctx, opUnsubscribe, e.ids); err != nil {
			observability.Log().Warn("unsubscribe frame not delivered",
				observability.F("channel", string(r.channel)),
				observability.F("error", err.Error()))
		}
		for _, sub := range e.handles {
			close(sub.msgs)
		}
	}
	r.entries = map[string]*entry{}
}
