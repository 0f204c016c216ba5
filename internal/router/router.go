// Package router implements the smart, KV-cache-aware worker selection
// described in the specification: each request is routed to the
// simulated worker with the lowest estimated cost, where cost trades off
// uncached prefill work, decode work and current queue load. Reusing an
// already-cached prompt prefix lowers the uncached prefill term; there is
// no separate reward term.
package router

import (
	"math"

	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/workerpool"
)

// Decision records the outcome of a routing choice, returned to callers
// so it can be surfaced in response metadata and metrics.
type Decision struct {
	WorkerID      int
	PromptTokens  int
	CachedTokens  int
	MatchedBlocks int
	Cost          float64
}

// Router selects a worker from a fixed pool given a tokenized prompt and
// an estimated completion length.
type Router struct {
	pool *workerpool.Pool
	cfg  config.KVCacheConfig
}

// New builds a Router over pool using cfg's cost weights.
func New(pool *workerpool.Pool, cfg config.KVCacheConfig) *Router {
	return &Router{pool: pool, cfg: cfg}
}

// Route picks the lowest-cost worker for promptTokens, given an estimated
// completion token count used for the decode-cost term. Ties are broken
// by lowest worker ID, making routing deterministic for identical state.
// The chosen worker's cache is updated to reflect that it now holds this
// prompt, so a later request sharing the prefix can match against it.
func (r *Router) Route(promptTokens []string, estimatedCompletionTokens int) Decision {
	best := Decision{WorkerID: -1, Cost: math.Inf(1)}

	for _, w := range r.pool.List() {
		matchedTokens, matchedBlocks := w.MatchPrefix(promptTokens)
		cached := matchedTokens
		uncached := len(promptTokens) - cached
		if uncached < 0 {
			uncached = 0
		}
		load := w.Load()

		// uncached already nets out cache reuse (cached tokens are
		// subtracted before the prefill term, which OverlapWeight, the
		// alpha coefficient, scales), so no separate reward term is added
		// here — doing so would double-count the same benefit.
		cost := r.cfg.OverlapWeight*float64(uncached)*r.cfg.CostPrefill +
			r.cfg.DecodeWeight*float64(estimatedCompletionTokens)*r.cfg.CostDecode +
			r.cfg.LoadWeight*float64(load)*r.cfg.CostLoad

		if best.WorkerID == -1 || cost < best.Cost {
			best = Decision{
				WorkerID:      w.ID,
				PromptTokens:  len(promptTokens),
				CachedTokens:  cached,
				MatchedBlocks: matchedBlocks,
				Cost:          cost,
			}
		}
	}

	if worker := r.pool.Get(best.WorkerID); worker != nil {
		worker.Remember(promptTokens)
	}

	return best
}
