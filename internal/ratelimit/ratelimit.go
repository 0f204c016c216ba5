// Package ratelimit implements the dual token-bucket rate limiter (RPM
// and TPM) described in the specification: one bucket governs request
// rate, a second governs token throughput, both refilled lazily on
// access rather than by a background goroutine, and both debited
// atomically before a request is allowed through.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/llmsimlab/simcore/internal/config"
)

// Tier names a built-in rate-limit tier.
type Tier struct {
	Name string
	RPM  int
	TPM  int
}

// Tiers holds the built-in tier table. Values are illustrative of a
// typical graduated API plan, not tied to any specific real provider.
var Tiers = map[string]Tier{
	"free":   {Name: "free", RPM: 3, TPM: 40_000},
	"tier-1": {Name: "tier-1", RPM: 500, TPM: 200_000},
	"tier-2": {Name: "tier-2", RPM: 5_000, TPM: 2_000_000},
	"tier-3": {Name: "tier-3", RPM: 5_000, TPM: 4_000_000},
	"tier-4": {Name: "tier-4", RPM: 10_000, TPM: 10_000_000},
	"tier-5": {Name: "tier-5", RPM: 10_000, TPM: 30_000_000},
}

// bucket is a lazily-refilled token bucket: capacity is expressed as a
// per-minute rate, refilled continuously (capacity/60 per second)
// whenever it is touched, rather than on a ticker.
type bucket struct {
	mu           sync.Mutex
	capacity     float64
	tokens       float64
	refillPerSec float64
	lastRefill   time.Time
}

func newBucket(perMinute int) *bucket {
	cap := float64(perMinute)
	return &bucket{
		capacity:     cap,
		tokens:       cap,
		refillPerSec: cap / 60.0,
		lastRefill:   time.Now(),
	}
}

func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillPerSec)
	b.lastRefill = now
}

// tryDebit atomically refills then attempts to debit amount, returning
// whether it succeeded, the remaining balance, and the seconds until the
// bucket is full again.
func (b *bucket) tryDebit(amount float64, now time.Time) (ok bool, remaining, resetSeconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	if b.tokens >= amount {
		b.tokens -= amount
		ok = true
	}
	remaining = b.tokens
	if b.refillPerSec > 0 {
		resetSeconds = (b.capacity - b.tokens) / b.refillPerSec
	}
	return
}

func (b *bucket) refund(amount float64) {
	b.mu.Lock()
	b.tokens = math.Min(b.capacity, b.tokens+amount)
	b.mu.Unlock()
}

type keyBuckets struct {
	rpm *bucket
	tpm *bucket
}

// Result is the outcome of a rate-limit check, carrying everything
// needed to populate the standard X-RateLimit-* response headers.
type Result struct {
	Allowed              bool
	LimitRequests        int
	RemainingRequests     int
	ResetRequestsSeconds  int
	LimitTokens           int
	RemainingTokens       int
	ResetTokensSeconds    int
	RetryAfterSeconds     int
}

// Limiter enforces per-API-key RPM and TPM budgets.
type Limiter struct {
	mu   sync.Mutex
	keys map[string]*keyBuckets
	cfg  config.RateLimitConfig

	statsMu sync.Mutex
	allowed uint64
	denied  uint64
}

// New builds a Limiter from configuration.
func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{keys: make(map[string]*keyBuckets), cfg: cfg}
}

func (l *Limiter) tierLimits() (rpm, tpm int) {
	tier, ok := Tiers[l.cfg.Tier]
	if !ok {
		tier = Tiers["tier-1"]
	}
	rpm, tpm = tier.RPM, tier.TPM
	if l.cfg.OverrideRPM > 0 {
		rpm = l.cfg.OverrideRPM
	}
	if l.cfg.OverrideTPM > 0 {
		tpm = l.cfg.OverrideTPM
	}
	return
}

func (l *Limiter) bucketsFor(apiKey string) *keyBuckets {
	l.mu.Lock()
	defer l.mu.Unlock()
	kb, ok := l.keys[apiKey]
	if !ok {
		rpm, tpm := l.tierLimits()
		kb = &keyBuckets{rpm: newBucket(rpm), tpm: newBucket(tpm)}
		l.keys[apiKey] = kb
	}
	return kb
}

// Allow checks and, on success, atomically debits one request and
// estimatedTokens tokens from apiKey's buckets. If the request bucket
// allows the call but the token bucket does not, the request debit is
// refunded so a denied call never consumes RPM budget.
func (l *Limiter) Allow(apiKey string, estimatedTokens int) Result {
	rpmLimit, tpmLimit := l.tierLimits()
	if !l.cfg.Enabled {
		return Result{Allowed: true, LimitRequests: rpmLimit, RemainingRequests: rpmLimit, LimitTokens: tpmLimit, RemainingTokens: tpmLimit}
	}

	kb := l.bucketsFor(apiKey)
	now := time.Now()

	okReq, remReq, resetReq := kb.rpm.tryDebit(1, now)
	if !okReq {
		l.record(false)
		return Result{
			Allowed:              false,
			LimitRequests:        rpmLimit,
			RemainingRequests:    int(remReq),
			ResetRequestsSeconds: int(math.Ceil(resetReq)),
			LimitTokens:          tpmLimit,
			RetryAfterSeconds:    int(math.Ceil(resetReq)),
		}
	}

	okTok, remTok, resetTok := kb.tpm.tryDebit(float64(estimatedTokens), now)
	if !okTok {
		kb.rpm.refund(1)
		l.record(false)
		return Result{
			Allowed:            false,
			LimitRequests:      rpmLimit,
			RemainingRequests:  int(remReq) + 1,
			LimitTokens:        tpmLimit,
			RemainingTokens:    int(remTok),
			ResetTokensSeconds: int(math.Ceil(resetTok)),
			RetryAfterSeconds:  int(math.Ceil(resetTok)),
		}
	}

	l.record(true)
	return Result{
		Allowed:              true,
		LimitRequests:        rpmLimit,
		RemainingRequests:    int(remReq),
		ResetRequestsSeconds: int(math.Ceil(resetReq)),
		LimitTokens:          tpmLimit,
		RemainingTokens:      int(remTok),
		ResetTokensSeconds:   int(math.Ceil(resetTok)),
	}
}

func (l *Limiter) record(allowed bool) {
	l.statsMu.Lock()
	if allowed {
		l.allowed++
	} else {
		l.denied++
	}
	l.statsMu.Unlock()
}

// Stats is a point-in-time snapshot of rate-limit decisions, used by the
// metrics component to report throttling pressure.
type Stats struct {
	Allowed uint64
	Denied  uint64
}

// Stats returns cumulative allow/deny counts across all keys.
func (l *Limiter) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return Stats{Allowed: l.allowed, Denied: l.denied}
}
