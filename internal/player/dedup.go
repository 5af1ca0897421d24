package player

import (
	"container/list"
	"sync"
	"time"
)

// dedupCache is a bounded, TTL-expiring set of recently-seen message_ids,
// used to drop redelivered Audio records before they reach the playback
// protocol (P2 idempotence). Adapted from the teacher's
// cache/providers/inmemory LRU (doubly-linked list + map for O(1)
// get/set/evict), narrowed to a presence set rather than a key/value
// cache.
type dedupCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	maxSize  int
	ttl      time.Duration
	now      func() time.Time
}

type dedupEntry struct {
	messageID string
	expiresAt time.Time
}

// newDedupCache builds a dedupCache holding at most maxSize entries, each
// expiring after ttl.
func newDedupCache(maxSize int, ttl time.Duration) *dedupCache {
	if maxSize <= 0 {
		maxSize = 200
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &dedupCache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SeenBefore reports whether messageID was already recorded and not yet
// expired, recording it as seen if not.
func (c *dedupCache) SeenBefore(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if el, ok := c.items[messageID]; ok {
		e := el.Value.(*dedupEntry)
		if now.Before(e.expiresAt) {
			c.order.MoveToFront(el)
			return true
		}
		c.order.Remove(el)
		delete(c.items, messageID)
	}

	c.order.PushFront(&dedupEntry{messageID: messageID, expiresAt: now.Add(c.ttl)})
	c.items[messageID] = c.order.Front()

	for c.order.Len() > c.maxSize {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.items, back.Value.(*dedupEntry).messageID)
	}

	return false
}
