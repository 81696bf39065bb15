package favorite

// Set is an insertion-ordered set of favorites keyed by (From, To, RouteNo).
// The zero value is ready to use. A Set is not safe for concurrent use.
type Set struct {
	items []Favorite
	index map[Key]int
}

// NewSet builds a set from items, keeping the first occurrence of each key.
func NewSet(items ...Favorite) *Set {
	s := &Set{}
	for _, f := range items {
		s.Add(f)
	}
	return s
}

// Len returns the number of favorites.
func (s *Set) Len() int {
	return len(s.items)
}

// Contains reports whether a favorite with key k is present.
func (s *Set) Contains(k Key) bool {
	_, ok := s.index[k]
	return ok
}

// Add appends f unless its key is already present. It reports whether f was added.
func (s *Set) Add(f Favorite) bool {
	if s.index == nil {
		s.index = make(map[Key]int)
	}
	k := f.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, f)
	return true
}

// Remove deletes the favorite with key k. It reports whether one was removed.
func (s *Set) Remove(k Key) bool {
	if !s.Contains(k) {
		return false
	}
	return s.removeWhere(func(f Favorite) bool { return f.Key() == k }) > 0
}

// RemovePair deletes every favorite between from and to, whatever its route.
// It returns the number removed.
func (s *Set) RemovePair(from, to string) int {
	return s.removeWhere(func(f Favorite) bool { return f.From == from && f.To == to })
}

// Items returns a copy of the favorites in insertion order.
func (s *Set) Items() []Favorite {
	out := make([]Favorite, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	return NewSet(s.items...)
}

// Diff compares s with next. removed holds keys only in s, added holds keys
// only in next, each in the order of its own set.
func (s *Set) Diff(next *Set) (removed, added []Favorite) {
	for _, f := range s.items {
		if !next.Contains(f.Key()) {
			removed = append(removed, f)
		}
	}
	for _, f := range next.items {
		if !s.Contains(f.Key()) {
			added = append(added, f)
		}
	}
	return removed, added
}

func (s *Set) removeWhere(match func(Favorite) bool) int {
	kept := s.items[:0]
	removed := 0
	for _, f := range s.items {
		if match(f) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	if removed == 0 {
		return 0
	}

	// Zero the tail so removed entries are not retained by the backing array.
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = Favorite{}
	}
	s.items = kept

	s.index = make(map[Key]int, len(s.items))
	for i, f := range s.items {
		s.index[f.Key()] = i
	}
	return removed
}
