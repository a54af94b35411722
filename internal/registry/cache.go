package registry

import "sync"

// HotCacheSlots is the number of recently resolved mappings kept ahead of the
// canonical selector scan.
const HotCacheSlots = 5

// hotCache is a derived index over Record.Selectors, most recent first. An
// entry must be evicted in the same critical section that removes its
// selector from the canonical list, otherwise a later lookup could revive a
// dead route.
type hotCache struct {
	mu    sync.Mutex
	used  int
	slots [HotCacheSlots]SelectorMapping
}

func (c *hotCache) lookup(sel Selector) (SelectorMapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < c.used; i++ {
		if c.slots[i].Selector == sel {
			m := c.slots[i]
			c.moveToFront(i)
			return m, true
		}
	}
	return SelectorMapping{}, false
}

func (c *hotCache) promote(m SelectorMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < c.used; i++ {
		if c.slots[i].Selector == m.Selector {
			c.slots[i] = m
			c.moveToFront(i)
			return
		}
	}
	if c.used < HotCacheSlots {
		c.used++
	}
	copy(c.slots[1:c.used], c.slots[:c.used-1])
	c.slots[0] = m
}

func (c *hotCache) evict(sel Selector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < c.used; i++ {
		if c.slots[i].Selector == sel {
			copy(c.slots[i:c.used-1], c.slots[i+1:c.used])
			c.used--
			c.slots[c.used] = SelectorMapping{}
			return
		}
	}
}

func (c *hotCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used = 0
	c.slots = [HotCacheSlots]SelectorMapping{}
}

func (c *hotCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// moveToFront assumes c.mu is held.
func (c *hotCache) moveToFront(i int) {
	if i == 0 {
		return
	}
	m := c.slots[i]
	copy(c.slots[1:i+1], c.slots[:i])
	c.slots[0] = m
}
