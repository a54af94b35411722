package registry

import "testing"

func cacheMapping(sel byte, fn string) SelectorMapping {
	return SelectorMapping{
		Selector:     Selector{sel, 0, 0, 0},
		FunctionName: fn,
	}
}

func TestHotCacheLookupMiss(t *testing.T) {
	t.Parallel()

	var c hotCache
	if _, ok := c.lookup(Selector{1, 0, 0, 0}); ok {
		t.Fatal("empty cache must miss")
	}
}

func TestHotCachePromoteThenLookup(t *testing.T) {
	t.Parallel()

	var c hotCache
	c.promote(cacheMapping(1, "one"))
	got, ok := c.lookup(Selector{1, 0, 0, 0})
	if !ok || got.FunctionName != "one" {
		t.Fatalf("lookup = %+v ok=%v", got, ok)
	}
	if c.size() != 1 {
		t.Fatalf("size = %d, want 1", c.size())
	}
}

func TestHotCacheCapsAtSlotCount(t *testing.T) {
	t.Parallel()

	var c hotCache
	for i := byte(1); i <= HotCacheSlots+1; i++ {
		c.promote(cacheMapping(i, "fn"))
	}
	if c.size() != HotCacheSlots {
		t.Fatalf("size = %d, want %d", c.size(), HotCacheSlots)
	}
	// The first promoted entry is the oldest and must have been displaced.
	if _, ok := c.lookup(Selector{1, 0, 0, 0}); ok {
		t.Fatal("oldest entry should have been displaced")
	}
	for i := byte(2); i <= HotCacheSlots+1; i++ {
		if _, ok := c.lookup(Selector{i, 0, 0, 0}); !ok {
			t.Fatalf("entry %d should still be cached", i)
		}
	}
}

func TestHotCacheLookupRefreshesRecency(t *testing.T) {
	t.Parallel()

	var c hotCache
	for i := byte(1); i <= HotCacheSlots; i++ {
		c.promote(cacheMapping(i, "fn"))
	}
	// Touch the oldest entry, then displace one slot; the touched entry must
	// survive and the next oldest must go.
	if _, ok := c.lookup(Selector{1, 0, 0, 0}); !ok {
		t.Fatal("entry 1 should be cached")
	}
	c.promote(cacheMapping(HotCacheSlots+1, "fn"))
	if _, ok := c.lookup(Selector{1, 0, 0, 0}); !ok {
		t.Fatal("recently touched entry must survive displacement")
	}
	if _, ok := c.lookup(Selector{2, 0, 0, 0}); ok {
		t.Fatal("least recently used entry should have been displaced")
	}
}

func TestHotCachePromoteExistingUpdatesMapping(t *testing.T) {
	t.Parallel()

	var c hotCache
	c.promote(cacheMapping(1, "old"))
	c.promote(cacheMapping(2, "two"))
	c.promote(cacheMapping(1, "new"))
	if c.size() != 2 {
		t.Fatalf("size = %d, want 2", c.size())
	}
	got, ok := c.lookup(Selector{1, 0, 0, 0})
	if !ok || got.FunctionName != "new" {
		t.Fatalf("lookup = %+v ok=%v, want updated mapping", got, ok)
	}
}

func TestHotCacheEvict(t *testing.T) {
	t.Parallel()

	var c hotCache
	for i := byte(1); i <= 3; i++ {
		c.promote(cacheMapping(i, "fn"))
	}
	c.evict(Selector{2, 0, 0, 0})
	if c.size() != 2 {
		t.Fatalf("size = %d, want 2", c.size())
	}
	if _, ok := c.lookup(Selector{2, 0, 0, 0}); ok {
		t.Fatal("evicted entry must not resolve")
	}
	for _, i := range []byte{1, 3} {
		if _, ok := c.lookup(Selector{i, 0, 0, 0}); !ok {
			t.Fatalf("entry %d should survive unrelated eviction", i)
		}
	}
	// Evicting an absent selector is a no-op.
	c.evict(Selector{9, 0, 0, 0})
	if c.size() != 2 {
		t.Fatalf("size = %d after no-op evict, want 2", c.size())
	}
}

func TestHotCacheReset(t *testing.T) {
	t.Parallel()

	var c hotCache
	for i := byte(1); i <= HotCacheSlots; i++ {
		c.promote(cacheMapping(i, "fn"))
	}
	c.reset()
	if c.size() != 0 {
		t.Fatalf("size = %d after reset, want 0", c.size())
	}
	if _, ok := c.lookup(Selector{1, 0, 0, 0}); ok {
		t.Fatal("reset cache must miss")
	}
}
