package router

import (
	"testing"

	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/workerpool"
)

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "tok"
	}
	return out
}

func TestRouteIsDeterministicOnEmptyPool(t *testing.T) {
	pool := workerpool.New(4, 16)
	r := New(pool, config.Default().KVCache)

	d1 := r.Route(tokens(64), 32)
	if d1.WorkerID != 0 {
		t.Fatalf("expected the all-equal tie to go to lowest worker id 0, got %d", d1.WorkerID)
	}
}

func TestRoutePrefersCachedWorker(t *testing.T) {
	pool := workerpool.New(4, 16)
	r := New(pool, config.Default().KVCache)

	first := tokens(64)
	d1 := r.Route(first, 32)

	// Routing the exact same prefix again should land on the same worker,
	// since it now holds the full prefix cached, dropping its uncached
	// prefill term to zero while every other worker still pays full
	// prefill cost.
	d2 := r.Route(first, 32)
	if d2.WorkerID != d1.WorkerID {
		t.Fatalf("expected repeat prompt to route to worker %d, got %d", d1.WorkerID, d2.WorkerID)
	}
	if d2.CachedTokens != 64 {
		t.Fatalf("expected full cache hit of 64, got %d", d2.CachedTokens)
	}
}

func TestRouteLoadPenalizesBusyWorker(t *testing.T) {
	pool := workerpool.New(2, 16)
	r := New(pool, config.Default().KVCache)

	busy := pool.Get(0)
	for i := 0; i < 1000; i++ {
		busy.Acquire()
	}

	d := r.Route(tokens(16), 8)
	if d.WorkerID != 1 {
		t.Fatalf("expected load to steer routing away from worker 0, got %d", d.WorkerID)
	}
}
