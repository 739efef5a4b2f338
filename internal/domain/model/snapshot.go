package model

import "sort"

// Snapshot is an immutable, ordered set of items from one store read.
type Snapshot struct {
	items []Item
	index map[string]int
}

// NewSnapshot copies items, keeping the first occurrence of each id.
func NewSnapshot(items []Item) Snapshot {
	s := Snapshot{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if _, dup := s.index[it.ID]; dup {
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
	return s
}

// Len returns the number of distinct items.
func (s Snapshot) Len() int { return len(s.items) }

// At returns the i-th item in input order.
func (s Snapshot) At(i int) Item { return s.items[i] }

// Items returns a copy of the items in input order.
func (s Snapshot) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Find looks an item up by id.
func (s Snapshot) Find(id string) (Item, bool) {
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// With returns a new snapshot where items with a known id are replaced,
// keeping their position. Unknown ids are ignored.
func (s Snapshot) With(updated ...Item) Snapshot {
	items := s.Items()
	for _, u := range updated {
		if i, ok := s.index[u.ID]; ok {
			items[i] = u
		}
	}
	return Snapshot{items: items, index: s.index}
}

// Leaderboard orders items by rating descending. Equal ratings keep input
// order and share a rank; ranks are dense. Positions count rows from 1.
func (s Snapshot) Leaderboard() []Standing {
	out := make([]Standing, len(s.items))
	for i, it := range s.items {
		out[i] = Standing{Item: it}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})

	rank := 0
	for i := range out {
		if i == 0 || out[i].Rating != out[i-1].Rating {
			rank++
		}
		out[i].Rank = rank
		out[i].Position = i + 1
	}
	return out
}
