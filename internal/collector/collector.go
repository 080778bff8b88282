// Package collector maintains a bounded, sorted, deduplicated list of
// match candidates (spec section 4.F).
package collector

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Match is one candidate character and its similarity score.
type Match struct {
	Hanzi rune
	Score float32
}

// Collector keeps the best max matches filed into it, sorted strictly
// descending by score and deduplicated by hanzi.
type Collector struct {
	max     int
	matches []Match
}

// New builds a collector with the given capacity. max must be positive.
func New(max int) *Collector {
	if max <= 0 {
		panic(fmt.Sprintf("collector: max must be positive, got %d", max))
	}
	return &Collector{max: max, matches: make([]Match, 0, max)}
}

// Matches returns the currently filed matches, sorted strictly descending
// by score.
func (c *Collector) Matches() []Match {
	return c.matches
}

// removeExistingLower looks for an existing entry for m's hanzi. It
// reports whether the new match should be skipped: true if an existing
// entry already has an equal-or-higher score (in which case nothing is
// removed), false otherwise (removing the stale lower-scored entry, if
// one was found).
func (c *Collector) removeExistingLower(m Match) bool {
	ix := -1
	for i, existing := range c.matches {
		if existing.Hanzi == m.Hanzi {
			ix = i
			break
		}
	}
	if ix == -1 {
		return false
	}
	if m.Score <= c.matches[ix].Score {
		return true
	}
	c.matches = append(c.matches[:ix], c.matches[ix+1:]...)
	return false
}

// FileMatch considers m for inclusion: discards it if the collector is
// full and m scores no better than the current worst entry, discards it
// if a better-or-equal entry already exists for the same hanzi, otherwise
// inserts it at the position that keeps the list sorted and drops the
// tail entry if that pushes the collector over capacity.
func (c *Collector) FileMatch(m Match) {
	if len(c.matches) == c.max && m.Score <= c.matches[len(c.matches)-1].Score {
		return
	}
	if c.removeExistingLower(m) {
		return
	}
	ix := slices.IndexFunc(c.matches, func(x Match) bool { return x.Score < m.Score })
	if ix == -1 {
		c.matches = append(c.matches, m)
	} else {
		c.matches = slices.Insert(c.matches, ix, m)
	}
	if len(c.matches) > c.max {
		c.matches = c.matches[:c.max]
	}
}
