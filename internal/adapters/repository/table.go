package repository

import (
	"fmt"
	"math"
	"strings"
	"time"

	model "github.com/okian/elovote/internal/domain/model"
)

// table is the in-process item set shared by the memory and file backends.
// It is not safe for concurrent use; callers hold their own lock.
type table struct {
	items  map[string]model.Item
	order  []string
	byName map[string]string
}

func newTable() *table {
	return &table{
		items:  make(map[string]model.Item),
		byName: make(map[string]string),
	}
}

func (t *table) clone() *table {
	c := &table{
		items:  make(map[string]model.Item, len(t.items)),
		order:  make([]string, len(t.order)),
		byName: make(map[string]string, len(t.byName)),
	}
	for k, v := range t.items {
		c.items[k] = v
	}
	copy(c.order, t.order)
	for k, v := range t.byName {
		c.byName[k] = v
	}
	return c
}

func (t *table) list() []model.Item {
	out := make([]model.Item, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}
	return out
}

func (t *table) get(id string) (model.Item, error) {
	it, ok := t.items[id]
	if !ok {
		return model.Item{}, notFound(id)
	}
	return it, nil
}

// put inserts or replaces an item, keeping its original position.
func (t *table) put(it model.Item) {
	if _, ok := t.items[it.ID]; !ok {
		t.order = append(t.order, it.ID)
	}
	t.items[it.ID] = it
	t.byName[it.Name] = it.ID
}

// check validates a commit without changing anything.
func (t *table) check(updates []model.RatingUpdate) error {
	for _, u := range updates {
		cur, ok := t.items[u.ID]
		if !ok {
			return notFound(u.ID)
		}
		if cur.Version != u.ExpectedVersion {
			return &model.ConflictError{ID: u.ID, Expected: u.ExpectedVersion, Actual: cur.Version}
		}
	}
	return nil
}

func (t *table) apply(updates []model.RatingUpdate, now time.Time) []model.Item {
	out := make([]model.Item, 0, len(updates))
	for _, u := range updates {
		it := t.items[u.ID]
		it.Rating = u.Rating
		it.Version++
		it.UpdatedAt = now
		t.items[u.ID] = it
		out = append(out, it)
	}
	return out
}

func (t *table) seed(names []string, rating float64, now time.Time, newID func() string) []model.Item {
	var added []model.Item
	for _, name := range cleanNames(names) {
		if _, ok := t.byName[name]; ok {
			continue
		}
		it := model.Item{ID: newID(), Name: name, Rating: rating, Version: 1, UpdatedAt: now}
		t.put(it)
		added = append(added, it)
	}
	return added
}

// validateUpdates rejects empty, duplicate or non-finite updates.
func validateUpdates(updates []model.RatingUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: no updates", ErrInvalidUpdate)
	}
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if u.ID == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidUpdate)
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidUpdate, u.ID)
		}
		seen[u.ID] = struct{}{}
		if math.IsNaN(u.Rating) || math.IsInf(u.Rating, 0) {
			return fmt.Errorf("%w: rating for %s is not finite", ErrInvalidUpdate, u.ID)
		}
	}
	return nil
}

func validateRating(rating float64) error {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return fmt.Errorf("%w: seed rating is not finite", ErrInvalidUpdate)
	}
	return nil
}

// cleanNames trims names and drops blanks and repeats, keeping order.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
