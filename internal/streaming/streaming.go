// Package streaming is the orchestrator that drives a simulated
// streaming completion end to end: waiting out a jittered
// time-to-first-token, then emitting reasoning, content, and tool-call
// deltas spaced by a jittered inter-token latency, honoring keep-alive
// heartbeats, per-token and total-stream timeouts, and caller
// cancellation at every suspension point. It is grounded on the
// teacher's internal/runtime/executor/stream_fanout.go WaitForEvents and
// internal/scheduler/fair_scheduler.go Schedule, both of which never
// block on a bare time.Sleep and always select against ctx.Done().
package streaming

import (
	"context"
	"math/rand"
	"time"

	"github.com/llmsimlab/simcore/internal/simerrors"
	"github.com/llmsimlab/simcore/internal/toolsynth"
)

// EventKind discriminates the payload carried by an Event.
type EventKind int

const (
	EventReasoning EventKind = iota
	EventContent
	EventToolCall
	EventKeepAlive
	EventDone
	EventError
)

// Event is one unit handed to the HTTP layer for SSE encoding.
type Event struct {
	Kind EventKind
	Text string
	Tool *toolsynth.Delta
	Err  *simerrors.Error
}

// Timing holds the jittered-delay model for TTFT and inter-token gaps.
type Timing struct {
	TTFTMs          int
	TTFTVariancePct float64
	ITLMs           int
	ITLVariancePct  float64
}

// jittered returns a jittered duration: base*(1 + variance*U(-1,1)), floored
// at zero.
func jittered(rng *rand.Rand, baseMs int, variancePct float64) time.Duration {
	if baseMs <= 0 {
		return 0
	}
	jitter := 1.0
	if variancePct > 0 {
		jitter = 1.0 + variancePct*(2*rng.Float64()-1)
	}
	ms := float64(baseMs) * jitter
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Params fully describes one simulated stream.
type Params struct {
	Seed              int64
	ReasoningChunks   []string
	ContentChunks     []string
	ToolCalls         []toolsynth.Call
	ToolChunkRunes    int
	Timing            Timing
	TotalTimeout      time.Duration
	PerTokenTimeout   time.Duration
	KeepAliveInterval time.Duration

	// InjectAfterChunks, when >= 0, causes InjectError to be emitted
	// after that many content chunks instead of completing normally.
	InjectAfterChunks int
	InjectError       *simerrors.Error
}

// Run drives the stream and returns a channel of Events, closed when the
// stream ends (normally, on error, or on ctx cancellation). The final
// event before close is always EventDone or EventError: a total-timeout
// breach surfaces as simerrors.KindTimeout, and any other cancellation
// (caller cancel, client disconnect) surfaces as simerrors.KindCancelled.
func Run(ctx context.Context, p Params) <-chan Event {
	out := make(chan Event, 8)

	go func() {
		defer close(out)
		rng := rand.New(rand.NewSource(p.Seed))

		runCtx := ctx
		if p.TotalTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, p.TotalTimeout)
			defer cancel()
		}

		var keepAlive *time.Ticker
		if p.KeepAliveInterval > 0 {
			keepAlive = time.NewTicker(p.KeepAliveInterval)
			defer keepAlive.Stop()
		}

		// terminalError distinguishes a total-stream-timeout breach from
		// any other cancellation reason (caller cancel, client
		// disconnect), so the HTTP layer can bill failed_streams
		// correctly instead of treating every cut-short stream the same.
		terminalError := func() Event {
			if runCtx.Err() == context.DeadlineExceeded {
				return Event{Kind: EventError, Err: simerrors.New(simerrors.KindTimeout, "total stream timeout exceeded")}
			}
			return Event{Kind: EventError, Err: simerrors.New(simerrors.KindCancelled, "stream was cancelled")}
		}

		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-runCtx.Done():
				return false
			}
		}

		// wait blocks for d, relaying keep-alive ticks and bailing out on
		// cancellation or a per-token timeout breach. perTokenLimited
		// gates the zero-tolerance PerTokenTimeout check: a
		// PerTokenTimeout of exactly 0 means "every inter-token wait
		// fails immediately", not "disabled", so the guard compares with
		// >= rather than treating 0 as a sentinel for unset.
		wait := func(d time.Duration, perTokenLimited bool) (ok bool, timedOut bool) {
			if perTokenLimited && d >= p.PerTokenTimeout {
				d = p.PerTokenTimeout
				timedOut = true
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			for {
				var kaC <-chan time.Time
				if keepAlive != nil {
					kaC = keepAlive.C
				}
				select {
				case <-timer.C:
					return true, timedOut
				case <-runCtx.Done():
					return false, false
				case <-kaC:
					if !emit(Event{Kind: EventKeepAlive}) {
						return false, false
					}
				}
			}
		}

		totalTTFT := jittered(rng, p.Timing.TTFTMs, p.Timing.TTFTVariancePct)
		ok, timedOut := wait(totalTTFT, false)
		if !ok {
			out <- terminalError()
			return
		}
		if timedOut {
			emit(Event{Kind: EventError, Err: simerrors.New(simerrors.KindTimeout, "time to first token exceeded the configured limit")})
			return
		}

		chunkIdx := 0

		for _, chunk := range p.ReasoningChunks {
			if !emit(Event{Kind: EventReasoning, Text: chunk}) {
				out <- terminalError()
				return
			}
			ok, timedOut := wait(jittered(rng, p.Timing.ITLMs, p.Timing.ITLVariancePct), true)
			if !ok {
				out <- terminalError()
				return
			}
			if timedOut {
				emit(Event{Kind: EventError, Err: simerrors.New(simerrors.KindTimeout, "inter-token latency exceeded the configured limit")})
				return
			}
		}

		for _, chunk := range p.ContentChunks {
			if p.InjectAfterChunks >= 0 && chunkIdx == p.InjectAfterChunks && p.InjectError != nil {
				emit(Event{Kind: EventError, Err: p.InjectError})
				return
			}
			if !emit(Event{Kind: EventContent, Text: chunk}) {
				out <- terminalError()
				return
			}
			chunkIdx++

			ok, timedOut := wait(jittered(rng, p.Timing.ITLMs, p.Timing.ITLVariancePct), true)
			if !ok {
				out <- terminalError()
				return
			}
			if timedOut {
				emit(Event{Kind: EventError, Err: simerrors.New(simerrors.KindTimeout, "inter-token latency exceeded the configured limit")})
				return
			}
		}

		for i, call := range p.ToolCalls {
			deltas := toolsynth.Stream(i, call, p.ToolChunkRunes)
			for _, d := range deltas {
				delta := d
				if !emit(Event{Kind: EventToolCall, Tool: &delta}) {
					out <- terminalError()
					return
				}
				ok, timedOut := wait(jittered(rng, p.Timing.ITLMs, p.Timing.ITLVariancePct), true)
				if !ok {
					out <- terminalError()
					return
				}
				if timedOut {
					emit(Event{Kind: EventError, Err: simerrors.New(simerrors.KindTimeout, "inter-token latency exceeded the configured limit")})
					return
				}
			}
		}

		emit(Event{Kind: EventDone})
	}()

	return out
}
