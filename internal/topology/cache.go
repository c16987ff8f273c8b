package topology

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/meshwatch/internal/util"
)

// Source produces the raw status dump, normally by running the border
// router CLI. The stop callback interrupts a slow query.
type Source interface {
	Fetch(stop func() bool) (string, error)
}

// Snapshot is the persisted form of one hop-count map.
type Snapshot struct {
	Timestamp    time.Time      `json:"timestamp"`
	HopCounts    map[string]int `json:"hop_counts"`
	TotalDevices int            `json:"total_devices"`
}

// Store persists the latest snapshot across restarts. A single global
// snapshot is kept; each save overwrites the previous one.
type Store interface {
	SaveSnapshot(Snapshot) error
	LoadSnapshot() (Snapshot, bool, error)
}

// Cache holds the most recent hop-count map with a time-to-live. Lookups
// never trigger a refresh; callers decide when freshness is worth the query.
// A failed refresh leaves the previous map serving lookups.
type Cache struct {
	source Source
	store  Store
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	counts    map[string]int
	fetchedAt time.Time
}

// NewCache creates a cache over the given source. store may be nil to skip
// persistence; now defaults to time.Now. A persisted snapshot, if present,
// seeds the cache so lookups work before the first refresh.
func NewCache(source Source, store Store, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	c := &Cache{source: source, store: store, ttl: ttl, now: now}

	if store != nil {
		snap, ok, err := store.LoadSnapshot()
		if err != nil {
			util.Warn("Failed to load topology snapshot: %v", err)
		} else if ok {
			c.counts = normalizeCounts(snap.HopCounts)
			c.fetchedAt = snap.Timestamp
			util.Debug("Loaded topology snapshot with %d devices from %s",
				len(c.counts), snap.Timestamp.Format(time.RFC3339))
		}
	}
	return c
}

// Refresh queries the source, reparses the topology, and on full success
// replaces the cached map and persists it. Any failure leaves the cache as
// it was and reports the error.
func (c *Cache) Refresh(stop func() bool) error {
	output, err := c.source.Fetch(stop)
	if err != nil {
		return fmt.Errorf("topology query failed: %w", err)
	}

	topo, err := Parse(output)
	if err != nil {
		return err
	}
	counts := normalizeCounts(HopCounts(topo.Edges, topo.Root))

	fetchedAt := c.now()
	c.mu.Lock()
	c.counts = counts
	c.fetchedAt = fetchedAt
	c.mu.Unlock()

	if c.store != nil {
		snap := Snapshot{
			Timestamp:    fetchedAt,
			HopCounts:    counts,
			TotalDevices: len(counts),
		}
		if err := c.store.SaveSnapshot(snap); err != nil {
			util.Warn("Failed to persist topology snapshot: %v", err)
		}
	}
	return nil
}

// RefreshIfStale refreshes only when the cached map is missing or older than
// the TTL.
func (c *Cache) RefreshIfStale(stop func() bool) error {
	if c.Fresh() {
		return nil
	}
	return c.Refresh(stop)
}

// Fresh reports whether the cached map is within its TTL.
func (c *Cache) Fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts != nil && c.now().Sub(c.fetchedAt) < c.ttl
}

// HasData reports whether any hop-count map is loaded, fresh or stale.
func (c *Cache) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.counts) > 0
}

// Lookup returns the hop count for an address. Matching is case-insensitive
// and tolerates substring matches in either direction, absorbing textual
// differences between address representations.
func (c *Cache) Lookup(address string) (int, bool) {
	needle := strings.ToLower(address)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if hops, ok := c.counts[needle]; ok {
		return hops, true
	}
	for stored, hops := range c.counts {
		if strings.Contains(stored, needle) || strings.Contains(needle, stored) {
			return hops, true
		}
	}
	return 0, false
}

// LookupLabel returns the hop count formatted for display, "-" when unknown.
func (c *Cache) LookupLabel(address string) string {
	if hops, ok := c.Lookup(address); ok {
		return fmt.Sprintf("%d", hops)
	}
	return "-"
}

// Counts returns a copy of the current hop-count map.
func (c *Cache) Counts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// FetchedAt returns when the current map was fetched.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Summary renders the hop distribution of the cached map.
func (c *Cache) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.counts) == 0 {
		return "No hop count data available"
	}

	levels := make(map[int]int)
	maxLevel := 0
	for _, hops := range c.counts {
		levels[hops]++
		if hops > maxLevel {
			maxLevel = hops
		}
	}

	lines := []string{fmt.Sprintf("Total devices: %d", len(c.counts))}
	keys := make([]int, 0, len(levels))
	for level := range levels {
		keys = append(keys, level)
	}
	sort.Ints(keys)
	for _, level := range keys {
		lines = append(lines, fmt.Sprintf("Hop %d: %d devices", level, levels[level]))
	}
	return strings.Join(lines, "\n")
}

func normalizeCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for addr, hops := range counts {
		out[strings.ToLower(addr)] = hops
	}
	return out
}
