// Package history keeps a bounded, newest-first log of committed votes.
package history

import (
	"context"
	"sync"
	"time"
)

const defaultSize = 1000

// Record is one committed vote.
type Record struct {
	SessionID    string    `json:"session_id"`
	WinnerID     string    `json:"winner_id"`
	WinnerName   string    `json:"winner_name"`
	WinnerRating float64   `json:"winner_rating"`
	LoserID      string    `json:"loser_id"`
	LoserName    string    `json:"loser_name"`
	LoserRating  float64   `json:"loser_rating"`
	Delta        float64   `json:"delta"`
	Retried      bool      `json:"retried"`
	At           time.Time `json:"at"`
}

// Log is a fixed-size ring of records. It is safe for concurrent use.
type Log struct {
	mu    sync.RWMutex
	buf   []Record
	next  int
	full  bool
	total int64
}

// New creates a log that keeps the last size records.
func New(size int) *Log {
	if size < 1 {
		size = defaultSize
	}
	return &Log{buf: make([]Record, size)}
}

// Record appends r, evicting the oldest record when full.
func (l *Log) Record(_ context.Context, r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = r
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
	l.total++
	return nil
}

// Recent returns up to n records, newest first. n <= 0 returns all kept records.
func (l *Log) Recent(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.lenLocked()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Len returns the number of kept records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lenLocked()
}

// Total returns the number of records ever added.
func (l *Log) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

func (l *Log) lenLocked() int {
	if l.full {
		return len(l.buf)
	}
	return l.next
}
