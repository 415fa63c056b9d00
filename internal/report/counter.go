package report

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Category is one label of a distribution.
type Category struct {
	Label   string  `yaml:"label"`
	Count   int     `yaml:"count"`
	Percent float64 `yaml:"percent"`
}

// counter tallies labels, bucketing them by xxhash and resolving
// collisions by comparing the label itself.
type counter struct {
	buckets map[uint64][]int
	entries []Category
	total   int
}

func newCounter() *counter {
	return &counter{buckets: make(map[uint64][]int)}
}

func (c *counter) add(label string) {
	c.total++
	h := xxhash.Sum64String(label)
	for _, idx := range c.buckets[h] {
		if c.entries[idx].Label == label {
			c.entries[idx].Count++
			return
		}
	}
	c.buckets[h] = append(c.buckets[h], len(c.entries))
	c.entries = append(c.entries, Category{Label: label, Count: 1})
}

// top returns at most n categories ordered by count desc, then label asc.
func (c *counter) top(n int) []Category {
	out := append([]Category(nil), c.entries...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Percent = percent(out[i].Count, c.total)
	}
	return out
}
