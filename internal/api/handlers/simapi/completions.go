package simapi

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/simerrors"
	"github.com/llmsimlab/simcore/internal/streaming"
)

// legacyCompletionRequest is the pre-chat /v1/completions wire shape: a
// single prompt string (or first element of a prompt array) instead of a
// messages list.
type legacyCompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      any      `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Stream      bool     `json:"stream"`
	Echo        bool     `json:"echo"`
	Temperature float64  `json:"temperature"`
}

func promptString(p any) string {
	switch v := p.(type) {
	case string:
		return v
	case []any:
		if len(v) == 0 {
			return ""
		}
		if s, ok := v[0].(string); ok {
			return s
		}
	}
	return ""
}

// Completions implements POST /v1/completions, the legacy text-completion
// surface still used by some NIM-compatible clients.
func (d *Deps) Completions(c *gin.Context) {
	start := time.Now()

	var req legacyCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	if req.Model == "" {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "model is required"))
		return
	}

	prompt := promptString(req.Prompt)
	promptTokens := est.EstimateText(prompt)

	if d.Config.Safety.EnableContextValidation {
		if err := d.ContextWin.Validate(req.Model, promptTokens); err != nil {
			if se, ok := err.(*simerrors.Error); ok {
				writeSimError(c, se)
				return
			}
		}
	}

	apiKey := apiKeyFrom(c)
	seed := generator.SeedFromText(req.Model + "\x00" + prompt)
	completionTokens := targetCompletionTokens(req.MaxTokens, seed)

	rlResult := d.RateLimiter.Allow(apiKey, promptTokens+completionTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/completions", req.Model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	decision := d.Router.Route(strings.Fields(prompt), completionTokens)
	worker := d.Pool.Get(decision.WorkerID)
	if worker != nil {
		worker.Acquire()
		defer worker.Release()
	}

	chunks := d.Generator.GenerateChunks(seed, completionTokens)

	params := streaming.Params{
		Seed:          seed,
		ContentChunks: chunks,
		Timing: streaming.Timing{
			TTFTMs:          d.Config.Simulation.TTFTMs,
			TTFTVariancePct: d.Config.Simulation.TTFTVariancePct,
			ITLMs:           d.Config.Simulation.ITLMs,
			ITLVariancePct:  d.Config.Simulation.ITLVariancePct,
		},
		TotalTimeout:      time.Duration(d.Config.Streaming.TotalTimeoutSeconds) * time.Second,
		PerTokenTimeout:   time.Duration(d.Config.Streaming.PerTokenTimeoutSeconds) * time.Second,
		KeepAliveInterval: keepAliveInterval(d.Config),
		InjectAfterChunks: -1,
	}
	if d.ErrorInjection != nil {
		if injected := d.ErrorInjection.Sample(rand.New(rand.NewSource(seed ^ 0x1e55))); injected != nil {
			params.InjectAfterChunks = len(chunks) / 2
			params.InjectError = injected
		}
	}

	ctx := c.Request.Context()

	id := fmt.Sprintf("cmpl-%x", seed)
	created := time.Now().Unix()

	if req.Stream {
		d.streamLegacyCompletion(c, ctx, id, created, req.Model, req.Echo, prompt, params, promptTokens, decision, apiKey, start)
		return
	}
	d.completeLegacyCompletion(c, ctx, id, created, req.Model, req.Echo, prompt, params, promptTokens, decision, apiKey, start)
}

type legacyStreamChoice struct {
	Text         string  `json:"text"`
	Index        int     `json:"index"`
	FinishReason *string `json:"finish_reason"`
}

type legacyStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []legacyStreamChoice `json:"choices"`
}

func (d *Deps) streamLegacyCompletion(c *gin.Context, ctx context.Context, id string, created int64, model string, echo bool, prompt string, params streaming.Params, promptTokens int, decision any, apiKey string, start time.Time) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	write := func(payload string) {
		_, _ = c.Writer.Write([]byte(payload))
		if ok {
			flusher.Flush()
		}
	}

	if echo {
		write(fmt.Sprintf("data: %s\n\n", mustJSON(legacyStreamChunk{
			ID: id, Object: "text_completion", Created: created, Model: model,
			Choices: []legacyStreamChoice{{Text: prompt, Index: 0}},
		})))
	}

	emittedTokens := 0
	for ev := range streaming.Run(ctx, params) {
		switch ev.Kind {
		case streaming.EventContent:
			emittedTokens++
			write(fmt.Sprintf("data: %s\n\n", mustJSON(legacyStreamChunk{
				ID: id, Object: "text_completion", Created: created, Model: model,
				Choices: []legacyStreamChoice{{Text: ev.Text, Index: 0}},
			})))
		case streaming.EventKeepAlive:
			write(": keepalive\n\n")
		case streaming.EventError:
			se := ev.Err
			if se.Kind != simerrors.KindCancelled {
				write(fmt.Sprintf("data: %s\n\n", mustJSON(gin.H{"error": se.ToStreamChunkError()})))
				write("data: [DONE]\n\n")
			}
			d.Metrics.RecordError("/v1/completions", model, string(se.Kind))
			d.Metrics.RecordRequest("/v1/completions", model, time.Since(start), promptTokens, emittedTokens, true)
			return
		case streaming.EventDone:
			reason := "stop"
			write(fmt.Sprintf("data: %s\n\n", mustJSON(legacyStreamChunk{
				ID: id, Object: "text_completion", Created: created, Model: model,
				Choices: []legacyStreamChoice{{Text: "", Index: 0, FinishReason: &reason}},
			})))
		}
	}
	write("data: [DONE]\n\n")
	d.Metrics.RecordRequest("/v1/completions", model, time.Since(start), promptTokens, emittedTokens, false)
}

func (d *Deps) completeLegacyCompletion(c *gin.Context, ctx context.Context, id string, created int64, model string, echo bool, prompt string, params streaming.Params, promptTokens int, decision any, apiKey string, start time.Time) {
	var text strings.Builder
	if echo {
		text.WriteString(prompt)
	}
	emittedTokens := 0
	for ev := range streaming.Run(ctx, params) {
		switch ev.Kind {
		case streaming.EventContent:
			text.WriteString(ev.Text)
			emittedTokens++
		case streaming.EventError:
			d.Metrics.RecordError("/v1/completions", model, string(ev.Err.Kind))
			d.Metrics.RecordRequest("/v1/completions", model, time.Since(start), promptTokens, emittedTokens, true)
			if ev.Err.Kind != simerrors.KindCancelled {
				writeSimError(c, ev.Err)
			}
			return
		}
	}

	resp := openai.CompletionResponse{
		ID:      id,
		Object:  "text_completion",
		Created: created,
		Model:   model,
		Choices: []openai.CompletionChoice{{
			Text:         text.String(),
			Index:        0,
			FinishReason: "stop",
		}},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: emittedTokens,
			TotalTokens:      promptTokens + emittedTokens,
		},
	}

	d.Metrics.RecordRequest("/v1/completions", model, time.Since(start), promptTokens, emittedTokens, false)
	c.JSON(http.StatusOK, resp)
}
