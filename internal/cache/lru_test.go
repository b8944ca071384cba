// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLRU[V any](capacity int, ttl time.Duration) (*LRU[V], *fakeClock) {
	clock := newFakeClock()
	c := NewLRU[V](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_BasicOperations(t *testing.T) {
	c, _ := newTestLRU[int](3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, found := c.Get(key)
		if !found || got != want {
			t.Errorf("Get(%q) = %d, %v; want %d, true", key, got, found, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestLRU[string](3, time.Minute)

	c.Add("a", "A")
	c.Add("b", "B")
	c.Add("c", "C")
	c.Get("a") // a becomes most recently used
	c.Add("d", "D")

	if _, found := c.Get("b"); found {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, found := c.Get(key); !found {
			t.Errorf("expected %q to be present", key)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestLRU_TTLExpiration(t *testing.T) {
	c, clock := newTestLRU[int](10, time.Minute)

	c.Add("a", 1)
	clock.Advance(30 * time.Second)
	if _, found := c.Get("a"); !found {
		t.Fatal("entry should be live before TTL")
	}

	clock.Advance(31 * time.Second)
	if c.Contains("a") {
		t.Error("Contains() should be false after TTL")
	}
	if _, found := c.Get("a"); found {
		t.Error("Get() should miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on Get, Len() = %d", c.Len())
	}
}

func TestLRU_UpdateRefreshesTTL(t *testing.T) {
	c, clock := newTestLRU[int](10, time.Minute)

	c.Add("a", 1)
	clock.Advance(50 * time.Second)
	c.Add("a", 2)
	clock.Advance(50 * time.Second)

	got, found := c.Get("a")
	if !found || got != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", got, found)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_IsDuplicate(t *testing.T) {
	c, clock := newTestLRU[struct{}](10, time.Minute)

	if c.IsDuplicate("msg-1") {
		t.Error("first sighting must not be a duplicate")
	}
	if !c.IsDuplicate("msg-1") {
		t.Error("second sighting within TTL must be a duplicate")
	}
	if c.IsDuplicate("msg-2") {
		t.Error("different key must not be a duplicate")
	}

	clock.Advance(2 * time.Minute)
	if c.IsDuplicate("msg-1") {
		t.Error("sighting after TTL must not be a duplicate")
	}
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	c.Add("c", 3)
	if _, found := c.Get("c"); !found {
		t.Error("cache should be usable after Clear")
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	c, clock := newTestLRU[int](10, time.Minute)
	c.Add("old-1", 1)
	c.Add("old-2", 2)
	clock.Advance(45 * time.Second)
	c.Add("new", 3)
	clock.Advance(30 * time.Second)

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if !c.Contains("new") {
		t.Error("fresh entry should survive cleanup")
	}
}

func TestLRU_Stats(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	if rate := c.Stats().HitRate(); rate != 0 {
		t.Errorf("HitRate() before lookups = %v, want 0", rate)
	}

	c.Add("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v, want 3 hits, 1 miss, size 1", s)
	}
	if rate := s.HitRate(); rate != 0.75 {
		t.Errorf("HitRate() = %v, want 0.75", rate)
	}
}

func TestLRU_Defaults(t *testing.T) {
	c := NewLRU[int](0, 0)
	if c.capacity != DefaultCapacity || c.ttl != DefaultTTL {
		t.Errorf("defaults = %d, %v; want %d, %v", c.capacity, c.ttl, DefaultCapacity, DefaultTTL)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](100, time.Minute)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (w*500+i)%150)
				c.Add(key, i)
				c.Get(key)
				c.IsDuplicate(key)
			}
		}(w)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity 100", c.Len())
	}
}
