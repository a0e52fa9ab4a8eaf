package cache

import (
	"testing"
	"time"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if c.order.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.order.Len())
	}
}

func TestLRU_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	c := NewLRU[string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if c.order.Len() != 0 {
		t.Errorf("expired entry not removed, Len() = %d", c.order.Len())
	}
}

func TestLRU_Overwrite(t *testing.T) {
	c := NewLRU[int](3, time.Minute)
	c.Set("a", 1)
	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) = %d, want 10", v)
	}
	if c.order.Len() != 1 {
		t.Errorf("overwrite added an entry, Len() = %d", c.order.Len())
	}
}
