package calendar

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakhollow/hearth/internal/model"
)

// Change is one delivery on a subscription. Exactly one of the snapshot or
// the delta slices is populated.
type Change struct {
	// Snapshot marks a full-state delivery: the initial one, and the one
	// sent after an automatic resubscribe.
	Snapshot bool
	Events   []model.Event

	Added    []model.Event
	Modified []model.Event
	Removed  []model.Event
}

// Feed fans event changes out to per-family subscribers. A subscriber that
// falls too far behind is treated as failed: its subscription is dropped and,
// once, re-established after a delay with a fresh snapshot.
type Feed struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	logger *slog.Logger

	// ResubscribeDelay is how long a failed subscription waits before its
	// single automatic recovery. Tests shorten it.
	ResubscribeDelay time.Duration
}

const subscriptionBuffer = 32

func NewFeed(logger *slog.Logger) *Feed {
	return &Feed{
		subs:             make(map[string]*Subscription),
		logger:           logger.With("component", "calendar-feed"),
		ResubscribeDelay: 5 * time.Second,
	}
}

// Subscription is one live listener. Read changes from C; call Unsubscribe
// when done. Unsubscribe is idempotent and safe from any goroutine.
type Subscription struct {
	ID       string
	familyID int64

	feed     *Feed
	ch       chan Change
	snapshot func() []model.Event

	mu           sync.Mutex
	resubscribed bool
	closed       bool

	unsubOnce sync.Once
}

// C is the change channel. It is closed after Unsubscribe, or after a second
// delivery failure when the one automatic resubscribe is spent.
func (sub *Subscription) C() <-chan Change {
	return sub.ch
}

// Unsubscribe detaches the listener and closes its channel. Calling it more
// than once is a no-op.
func (sub *Subscription) Unsubscribe() {
	sub.unsubOnce.Do(func() {
		sub.feed.remove(sub)
		sub.close()
	})
}

func (sub *Subscription) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// deliver sends without blocking. A full buffer means the listener failed.
func (sub *Subscription) deliver(c Change) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return true
	}
	select {
	case sub.ch <- c:
		return true
	default:
		return false
	}
}

func (f *Feed) subscribe(familyID int64, snapshot func() []model.Event) (*Subscription, error) {
	sub := &Subscription{
		ID:       uuid.NewString(),
		familyID: familyID,
		feed:     f,
		ch:       make(chan Change, subscriptionBuffer),
		snapshot: snapshot,
	}

	f.mu.Lock()
	f.subs[sub.ID] = sub
	f.mu.Unlock()

	sub.deliver(Change{Snapshot: true, Events: snapshot()})
	return sub, nil
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	delete(f.subs, sub.ID)
	f.mu.Unlock()
}

// publish fans a delta out to the family's subscribers.
func (f *Feed) publish(familyID int64, c Change) {
	f.mu.Lock()
	var targets []*Subscription
	for _, sub := range f.subs {
		if sub.familyID == familyID {
			targets = append(targets, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range targets {
		if !sub.deliver(c) {
			f.fail(sub)
		}
	}
}

// fail drops a subscription that could not keep up. The first failure
// schedules a single automatic resubscribe with a fresh snapshot; a second
// one closes the channel for good.
func (f *Feed) fail(sub *Subscription) {
	f.remove(sub)

	sub.mu.Lock()
	spent := sub.resubscribed
	sub.resubscribed = true
	sub.mu.Unlock()

	if spent {
		f.logger.Error("subscription failed twice, closing", "id", sub.ID)
		sub.close()
		return
	}

	f.logger.Warn("subscription fell behind, resubscribing",
		"id", sub.ID, "delay", f.ResubscribeDelay)
	go func() {
		time.Sleep(f.ResubscribeDelay)

		sub.mu.Lock()
		closed := sub.closed
		sub.mu.Unlock()
		if closed {
			return
		}

		// Drain anything stale so the fresh snapshot fits.
	drain:
		for {
			select {
			case <-sub.ch:
			default:
				break drain
			}
		}

		f.mu.Lock()
		f.subs[sub.ID] = sub
		f.mu.Unlock()
		sub.deliver(Change{Snapshot: true, Events: sub.snapshot()})
	}()
}
