package notifier

import (
	"sync"
	"time"
)

// BidEvent is the payload broadcast after a bid has been committed.
type BidEvent struct {
	AuctionID string    `json:"auction_id"`
	NewBid    float64   `json:"new_bid"`
	BidderID  string    `json:"bidder_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier fans out accepted bids to interested observers. Broadcast is
// fire-and-forget: delivery is best-effort and never fails the bid.
type Notifier interface {
	BroadcastBid(event BidEvent)
}

// subscriberBuffer is the channel depth per subscriber. A subscriber that
// falls this far behind starts losing events.
const subscriberBuffer = 16

// Subscription is a live feed of bid events for one auction (or the
// global feed). Close must be called when the consumer goes away.
type Subscription struct {
	C    <-chan BidEvent
	ch   chan BidEvent
	once sync.Once
	drop func(*Subscription)
}

// Close detaches the subscription from its hub.
func (s *Subscription) Close() {
	s.once.Do(func() { s.drop(s) })
}

// Hub is an in-process pub/sub fan-out with one room per auction plus a
// global feed. It owns no persisted state.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{} // key: auctionID
	global map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		global: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers an observer for a single auction's bid events.
func (h *Hub) Subscribe(auctionID string) *Subscription {
	sub := h.newSubscription(func(s *Subscription) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if room, ok := h.rooms[auctionID]; ok {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, auctionID)
			}
		}
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[auctionID] == nil {
		h.rooms[auctionID] = make(map[*Subscription]struct{})
	}
	h.rooms[auctionID][sub] = struct{}{}
	return sub
}

// SubscribeAll registers an observer for every auction's bid events.
func (h *Hub) SubscribeAll() *Subscription {
	sub := h.newSubscription(func(s *Subscription) {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.global, s)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.global[sub] = struct{}{}
	return sub
}

func (h *Hub) newSubscription(drop func(*Subscription)) *Subscription {
	ch := make(chan BidEvent, subscriberBuffer)
	return &Subscription{C: ch, ch: ch, drop: drop}
}

// BroadcastBid delivers the event to the auction's room and the global
// feed. Sends never block: a subscriber with a full buffer misses the
// event. Callers broadcast in commit order, so each subscriber's channel
// carries a single auction's events in that same order.
func (h *Hub) BroadcastBid(event BidEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[event.AuctionID] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	for sub := range h.global {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Fanout broadcasts to every wrapped notifier in order.
type Fanout []Notifier

// BroadcastBid implements Notifier.
func (f Fanout) BroadcastBid(event BidEvent) {
	for _, n := range f {
		n.BroadcastBid(event)
	}
}
