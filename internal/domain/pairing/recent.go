package pairing

// recentPairs remembers the last n unordered pairs in a ring.
// Callers hold the selector lock.
type recentPairs struct {
	ring  []string
	next  int
	full  bool
	count map[string]int
}

func newRecentPairs(n int) *recentPairs {
	return &recentPairs{
		ring:  make([]string, n),
		count: make(map[string]int, n),
	}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

func (r *recentPairs) contains(a, b string) bool {
	return r.count[pairKey(a, b)] > 0
}

func (r *recentPairs) add(a, b string) {
	if r.full {
		old := r.ring[r.next]
		if r.count[old]--; r.count[old] <= 0 {
			delete(r.count, old)
		}
	}
	k := pairKey(a, b)
	r.ring[r.next] = k
	r.count[k]++
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.full = true
	}
}

func (r *recentPairs) len() int {
	if r.full {
		return len(r.ring)
	}
	return r.next
}
