package calendar

import (
	"sync"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/model"
)

// cacheMaxEntries bounds the cache; when full, the map is dropped and
// rebuilt from subsequent reads.
const cacheMaxEntries = 256

// Cache is an advisory read-through cache over the service, keyed by event
// id and scoped to one family. Every change observed on the live feed
// invalidates the affected ids, so a hit is at worst one feed-delivery
// behind and the next read after any change goes back to the store. It is
// never authoritative: misses and invalidated ids always read through.
type Cache struct {
	svc      *Service
	sub      *Subscription
	familyID int64

	mu     sync.RWMutex
	events map[int64]model.Event
	closed bool
}

// NewCache subscribes to the family's feed and starts consuming
// invalidations. Call Close when done.
func (s *Service) NewCache(familyID int64) (*Cache, error) {
	sub, err := s.Subscribe(familyID)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		svc:      s,
		sub:      sub,
		familyID: familyID,
		events:   make(map[int64]model.Event),
	}
	go c.consume()
	return c, nil
}

// Get returns the event, serving from cache when the id is warm. Events
// belonging to other families are reported as not found and never cached.
func (c *Cache) Get(id int64) (*model.Event, error) {
	c.mu.RLock()
	cached, ok := c.events[id]
	c.mu.RUnlock()
	if ok {
		copied := cached
		return &copied, nil
	}

	e, err := c.svc.Get(id)
	if err != nil {
		return nil, err
	}
	if e.FamilyID != c.familyID {
		return nil, apperr.NotFound("event", id)
	}

	c.mu.Lock()
	if !c.closed {
		if len(c.events) >= cacheMaxEntries {
			c.events = make(map[int64]model.Event)
		}
		c.events[e.ID] = *e
	}
	c.mu.Unlock()
	return e, nil
}

// Close detaches from the feed and drops the cached state.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.events = make(map[int64]model.Event)
	c.mu.Unlock()
	c.sub.Unsubscribe()
}

func (c *Cache) consume() {
	for change := range c.sub.C() {
		c.mu.Lock()
		if change.Snapshot {
			// Resubscribe or initial state: everything cached is suspect.
			c.events = make(map[int64]model.Event)
		}
		for _, e := range change.Added {
			delete(c.events, e.ID)
		}
		for _, e := range change.Modified {
			delete(c.events, e.ID)
		}
		for _, e := range change.Removed {
			delete(c.events, e.ID)
		}
		c.mu.Unlock()
	}
}
