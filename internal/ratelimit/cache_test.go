package ratelimit

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := NewCache(2, time.Hour, func() *rate.Limiter { return rate.NewLimiter(1, 1) })
	t0 := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	a := c.Get("a", t0)
	c.Get("b", t0.Add(time.Second))
	c.Get("c", t0.Add(2*time.Second))
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
	if c.Get("a", t0.Add(3*time.Second)) == a {
		t.Fatalf("expected a to have been evicted")
	}
}

func TestCache_SweepsIdle(t *testing.T) {
	c := NewCache(10, time.Minute, func() *rate.Limiter { return rate.NewLimiter(1, 1) })
	t0 := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	c.Get("a", t0)
	c.Get("b", t0.Add(2*time.Minute))
	if c.Size() != 1 {
		t.Fatalf("idle entry not swept, size = %d", c.Size())
	}
}

func TestCache_Allow(t *testing.T) {
	c := PerSecond(1, 2)
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	if !c.Allow("k", now) || !c.Allow("k", now) {
		t.Fatalf("burst of 2 should be allowed")
	}
	if c.Allow("k", now) {
		t.Fatalf("third request in the same instant should be refused")
	}
	if !c.Allow("other", now) {
		t.Fatalf("limiters must be per key")
	}
}
