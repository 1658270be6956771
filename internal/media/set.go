package media

// Set is the ordered list of items queued for burning. Insertion order
// is kept and the same path may be queued more than once.
type Set struct {
	items []*Item
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// Add appends item.
func (s *Set) Add(item *Item) {
	s.items = append(s.items, item)
}

// Remove drops the first occurrence of item and reports whether it was
// present.
func (s *Set) Remove(item *Item) bool {
	for i, it := range s.items {
		if it == item {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a copy of the queued items in order.
func (s *Set) Items() []*Item {
	out := make([]*Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of queued items.
func (s *Set) Len() int {
	return len(s.items)
}

// SizeOnDisc sums the footprint of all queued items.
func (s *Set) SizeOnDisc() int64 {
	var total int64
	for _, it := range s.items {
		total += it.sizeOnDisc
	}
	return total
}
