// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestLRU(capacity int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](capacity, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRU_GetAdd(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(3, time.Minute)
	c.Add("a", "1")
	c.Add("a", "2")

	got, ok := c.Get("a")
	if !ok || got != "2" {
		t.Errorf("Get(a) = %q, %v, want 2, true", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) found a value")
	}
	if hits, misses, size := c.Stats(); hits != 1 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d, want 1, 1, 1", hits, misses, size)
	}
}

func TestLRU_Eviction(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(3, time.Minute)
	c.Add("a", "")
	c.Add("b", "")
	c.Add("c", "")
	c.Get("a")
	c.Add("d", "")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("Get(%s) missing", k)
		}
	}
}

func TestLRU_Expiry(t *testing.T) {
	t.Parallel()

	c, clk := newTestLRU(10, time.Minute)
	c.Add("a", "x")
	c.Add("b", "y")

	clk.t = clk.t.Add(30 * time.Second)
	c.Add("b", "y") // refreshes b

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanupExpired(); n != 0 {
		t.Errorf("CleanupExpired() = %d, want 0 after lazy removal of a", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanupExpired(); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}
}

func TestLRU_IsDuplicate(t *testing.T) {
	t.Parallel()

	c, clk := newTestLRU(10, time.Minute)
	if c.IsDuplicate("evt-1") {
		t.Error("first sighting reported as duplicate")
	}
	if !c.IsDuplicate("evt-1") {
		t.Error("second sighting not reported as duplicate")
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if c.IsDuplicate("evt-1") {
		t.Error("expired key reported as duplicate")
	}
}

func TestLRU_RemoveClear(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(10, time.Minute)
	c.Add("a", "")
	if !c.Remove("a") || c.Remove("a") {
		t.Error("Remove() should succeed once")
	}
	c.Add("b", "")
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	c.Add("c", "")
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](100, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*500+i)%250)
				c.Add(key, i)
				c.Get(key)
				c.IsDuplicate(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d, want <= 100", c.Len())
	}
}
