package registry

// State pairs the canonical record with its hot cache.
//
// State does not serialize access to the record; the owning service does
// that. The cache carries its own lock so Resolve stays safe under a shared
// read lock.
type State struct {
	rec   *Record
	cache hotCache
}

func NewState(rec *Record) *State {
	return &State{rec: rec}
}

// Record returns the canonical record. Callers that intend to mutate must
// work on a Clone and install the result with Replace.
func (s *State) Record() *Record {
	return s.rec
}

// Replace installs rec as the canonical record. The hot cache carries over;
// a caller that removed a selector must EvictSelector it as well before
// releasing its write lock.
func (s *State) Replace(rec *Record) {
	s.rec = rec
}

// Resolve looks sel up, consulting the hot cache before the canonical scan
// and promoting scan hits. The second return reports a cache hit.
func (s *State) Resolve(sel Selector) (SelectorMapping, bool, bool) {
	if m, ok := s.cache.lookup(sel); ok {
		return m, true, true
	}
	m, ok := s.rec.FindSelector(sel)
	if !ok {
		return SelectorMapping{}, false, false
	}
	s.cache.promote(m)
	return m, false, true
}

// EvictSelector drops sel from the hot cache.
func (s *State) EvictSelector(sel Selector) {
	s.cache.evict(sel)
}

// ResetCache empties the hot cache. Used when a record is (re)loaded from
// storage, since the cache is never persisted.
func (s *State) ResetCache() {
	s.cache.reset()
}
