package topology

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	output string
	err    error
	calls  int
}

func (s *stubSource) Fetch(stop func() bool) (string, error) {
	s.calls++
	return s.output, s.err
}

type memStore struct {
	snap    Snapshot
	has     bool
	loadErr error
	saves   int
}

func (m *memStore) SaveSnapshot(s Snapshot) error {
	m.snap = s
	m.has = true
	m.saves++
	return nil
}

func (m *memStore) LoadSnapshot() (Snapshot, bool, error) {
	return m.snap, m.has, m.loadErr
}

func TestCacheRefreshBuildsHopCounts(t *testing.T) {
	src := &stubSource{output: "FD12:3456::1\n  FD12:3456::2\n"}
	cache := NewCache(src, nil, time.Minute, nil)

	require.NoError(t, cache.Refresh(nil))
	assert.Equal(t, map[string]int{"fd12:3456::1": 0, "fd12:3456::2": 1}, cache.Counts())
	assert.True(t, cache.HasData())
}

func TestCacheRefreshIfStaleHonorsTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	src := &stubSource{output: "fd12:3456::1\n"}
	cache := NewCache(src, nil, 5*time.Minute, clock)

	require.NoError(t, cache.RefreshIfStale(nil))
	require.NoError(t, cache.RefreshIfStale(nil))
	assert.Equal(t, 1, src.calls, "second call within TTL must not query the source")

	now = now.Add(5*time.Minute + time.Second)
	require.NoError(t, cache.RefreshIfStale(nil))
	assert.Equal(t, 2, src.calls)
}

func TestCacheFailedRefreshKeepsPriorData(t *testing.T) {
	src := &stubSource{output: "fd12:3456::1\n  fd12:3456::2\n"}
	cache := NewCache(src, nil, time.Minute, nil)
	require.NoError(t, cache.Refresh(nil))

	src.err = errors.New("command failed")
	err := cache.Refresh(nil)
	assert.Error(t, err)
	assert.Equal(t, map[string]int{"fd12:3456::1": 0, "fd12:3456::2": 1}, cache.Counts())
}

func TestCacheLookupMatching(t *testing.T) {
	src := &stubSource{output: "FD12:3456::B635:22FF:FE98:2537\n"}
	cache := NewCache(src, nil, time.Minute, nil)
	require.NoError(t, cache.Refresh(nil))

	// Exact, case-insensitive.
	hops, ok := cache.Lookup("fd12:3456::b635:22ff:fe98:2537")
	assert.True(t, ok)
	assert.Equal(t, 0, hops)

	// Substring in either direction.
	_, ok = cache.Lookup("B635:22FF:FE98:2537")
	assert.True(t, ok)

	_, ok = cache.Lookup("fd12:3456::dead:beef")
	assert.False(t, ok)

	assert.Equal(t, "-", cache.LookupLabel("fd12:3456::dead:beef"))
	assert.Equal(t, "0", cache.LookupLabel("FD12:3456::B635:22FF:FE98:2537"))
}

func TestCacheWarmStartFromStore(t *testing.T) {
	store := &memStore{
		snap: Snapshot{
			Timestamp:    time.Unix(900, 0),
			HopCounts:    map[string]int{"FD12:3456::1": 0, "FD12:3456::2": 1},
			TotalDevices: 2,
		},
		has: true,
	}

	src := &stubSource{err: errors.New("router down")}
	cache := NewCache(src, store, time.Minute, nil)

	assert.True(t, cache.HasData())
	hops, ok := cache.Lookup("fd12:3456::2")
	assert.True(t, ok)
	assert.Equal(t, 1, hops)
}

func TestCacheRefreshPersistsSnapshot(t *testing.T) {
	store := &memStore{}
	src := &stubSource{output: "fd12:3456::1\n  fd12:3456::2\n"}
	cache := NewCache(src, store, time.Minute, nil)

	require.NoError(t, cache.Refresh(nil))
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 2, store.snap.TotalDevices)
	assert.Equal(t, map[string]int{"fd12:3456::1": 0, "fd12:3456::2": 1}, store.snap.HopCounts)
}

func TestCacheSummary(t *testing.T) {
	src := &stubSource{output: "fd12:3456::1\n  fd12:3456::2\n  fd12:3456::3\n"}
	cache := NewCache(src, nil, time.Minute, nil)

	assert.Equal(t, "No hop count data available", cache.Summary())

	require.NoError(t, cache.Refresh(nil))
	assert.Equal(t, "Total devices: 3\nHop 0: 1 devices\nHop 1: 2 devices", cache.Summary())
}
