// Package model contains domain models passed between layers.
package model

import "time"

// Item is one rated entity, e.g. a player.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    float64   `json:"rating"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingUpdate asks the store to set Rating on ID if the stored version
// still equals ExpectedVersion.
type RatingUpdate struct {
	ID              string
	Rating          float64
	ExpectedVersion int64
}

// Comparison is the pair currently offered to a voter.
type Comparison struct {
	A Item `json:"a"`
	B Item `json:"b"`
}

// Slot returns the item at position 0 (A) or 1 (B).
func (c Comparison) Slot(slot int) (Item, bool) {
	switch slot {
	case 0:
		return c.A, true
	case 1:
		return c.B, true
	default:
		return Item{}, false
	}
}

// Resolve returns winner and loser for a vote on slot.
func (c Comparison) Resolve(slot int) (winner, loser Item, ok bool) {
	switch slot {
	case 0:
		return c.A, c.B, true
	case 1:
		return c.B, c.A, true
	default:
		return Item{}, Item{}, false
	}
}

// Standing is one leaderboard row. Rank is shared by equal ratings; Position
// is the 1-based row number.
type Standing struct {
	Rank     int `json:"rank"`
	Position int `json:"position"`
	Item
}
