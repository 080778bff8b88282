// Package lookupcache memoizes recent recognition results so a UI that
// re-issues a recognize request after every added point (stroke-by-stroke
// prediction, spec.md section 1) doesn't re-run the DP matcher for
// strokes it has already scored.
package lookupcache

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gugray/hanzilookup"
)

// Cache is a bounded memo of MatchTyped results, keyed by the exact
// stroke input and limit.
type Cache struct {
	lru *lru.Cache
}

// New builds a Cache holding at most size entries. size must be
// positive.
func New(size int) (*Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns a cached result for strokes/limit, if present.
func (c *Cache) Get(strokes []hanzilookup.Stroke, limit int) ([]hanzilookup.Match, bool) {
	v, ok := c.lru.Get(key(strokes, limit))
	if !ok {
		return nil, false
	}
	return v.([]hanzilookup.Match), true
}

// Put stores matches for strokes/limit, evicting the least-recently-used
// entry if the cache is full.
func (c *Cache) Put(strokes []hanzilookup.Stroke, limit int, matches []hanzilookup.Match) {
	c.lru.Add(key(strokes, limit), matches)
}

// key renders strokes and limit into a single comparable string. Stroke
// coordinates are exact-match only (no fuzzy hashing): a mid-gesture
// resend with identical points hits, anything else is a clean miss. Each
// stroke carries its point count, so coordinate bytes can never be
// mistaken for a stroke boundary.
func key(strokes []hanzilookup.Stroke, limit int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(limit))
	for _, s := range strokes {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(s.Points)))
		b.WriteByte(':')
		for _, p := range s.Points {
			b.WriteByte(p.X)
			b.WriteByte(p.Y)
		}
	}
	return b.String()
}
