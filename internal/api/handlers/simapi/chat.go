package simapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/logging"
	"github.com/llmsimlab/simcore/internal/promptcache"
	"github.com/llmsimlab/simcore/internal/reasoning"
	"github.com/llmsimlab/simcore/internal/router"
	"github.com/llmsimlab/simcore/internal/simerrors"
	"github.com/llmsimlab/simcore/internal/streaming"
	"github.com/llmsimlab/simcore/internal/toolsynth"
)

// ChatCompletions implements POST /v1/chat/completions for both the
// streaming (SSE) and non-streaming JSON response shapes.
func (d *Deps) ChatCompletions(c *gin.Context) {
	start := time.Now()

	var req openai.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	if req.Model == "" {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "model is required"))
		return
	}

	promptText := flattenMessages(req.Messages)
	promptWords := strings.Fields(promptText)
	promptTokens := est.EstimateText(promptText)

	if d.Config.Safety.EnableContextValidation {
		if err := d.ContextWin.Validate(req.Model, promptTokens); err != nil {
			if se, ok := err.(*simerrors.Error); ok {
				writeSimError(c, se)
				return
			}
			writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
			return
		}
	}

	apiKey := apiKeyFrom(c)
	seed := generator.SeedFromText(req.Model + "\x00" + promptText)
	completionTokens := targetCompletionTokens(req.MaxTokens, seed)

	rlResult := d.RateLimiter.Allow(apiKey, promptTokens+completionTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/chat/completions", req.Model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	decision := d.Router.Route(promptWords, completionTokens)
	worker := d.Pool.Get(decision.WorkerID)
	if worker != nil {
		worker.Acquire()
		defer worker.Release()
	}

	fingerprint := promptcache.Fingerprint(promptcache.FingerprintInput{
		Model:    req.Model,
		Messages: []json.RawMessage{json.RawMessage(promptText)},
	})
	if _, hit := d.PromptCache.Lookup(fingerprint); !hit {
		d.PromptCache.Store(fingerprint, promptTokens)
	}

	var reasoningChunks []string
	if reasoning.IsReasoningModel(req.Model) {
		reasoningChunks = reasoning.Generate(d.Generator, seed)
	}

	defs := convertTools(req.Tools)
	chosen, err := toolsynth.ResolveChoice(req.ToolChoice, defs, rand.New(rand.NewSource(seed)))
	if err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	var toolCalls []toolsynth.Call
	if len(chosen) > 0 {
		toolCalls = toolsynth.Synthesize(chosen, seed)
	}

	var contentChunks []string
	if len(toolCalls) == 0 {
		contentChunks = d.Generator.GenerateChunks(seed, completionTokens)
	}

	params := streaming.Params{
		Seed:            seed,
		ReasoningChunks: reasoningChunks,
		ContentChunks:   contentChunks,
		ToolCalls:       toolCalls,
		ToolChunkRunes:  6,
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
			params.InjectAfterChunks = len(contentChunks) / 2
			params.InjectError = injected
		}
	}

	ctx := c.Request.Context()

	d.Metrics.StreamOpened()
	defer d.Metrics.StreamClosed()

	id := fmt.Sprintf("chatcmpl-%x", seed)
	created := time.Now().Unix()

	if req.Stream {
		d.streamChat(c, ctx, id, created, req.Model, params, promptTokens, completionTokens, decision, apiKey, start)
		return
	}
	d.completeChat(c, ctx, id, created, req.Model, params, promptTokens, completionTokens, decision, apiKey, start)
}

type chatDelta struct {
	Role             string           `json:"role,omitempty"`
	Content          string           `json:"content,omitempty"`
	ReasoningContent string           `json:"reasoning_content,omitempty"`
	ToolCalls        []toolCallChunk  `json:"tool_calls,omitempty"`
}

type toolCallChunk struct {
	Index    int             `json:"index"`
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type,omitempty"`
	Function *functionChunk  `json:"function,omitempty"`
}

type functionChunk struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type chatStreamChoice struct {
	Index        int        `json:"index"`
	Delta        chatDelta  `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chatStreamChunk struct {
	ID      string              `json:"id"`
	Object  string              `json:"object"`
	Created int64               `json:"created"`
	Model   string              `json:"model"`
	Choices []chatStreamChoice  `json:"choices"`
	Usage   *openai.Usage       `json:"usage,omitempty"`
}

func (d *Deps) streamChat(c *gin.Context, ctx context.Context, id string, created int64, model string, params streaming.Params, promptTokens, completionTokensTarget int, decision router.Decision, apiKey string, start time.Time) {
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

	write(fmt.Sprintf("data: %s\n\n", mustJSON(chatStreamChunk{
		ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []chatStreamChoice{{Index: 0, Delta: chatDelta{Role: "assistant"}}},
	})))

	emittedTokens := 0
	var finishReason string = "stop"

	for ev := range streaming.Run(ctx, params) {
		switch ev.Kind {
		case streaming.EventReasoning:
			write(fmt.Sprintf("data: %s\n\n", mustJSON(chatStreamChunk{
				ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
				Choices: []chatStreamChoice{{Index: 0, Delta: chatDelta{ReasoningContent: ev.Text}}},
			})))
		case streaming.EventContent:
			emittedTokens++
			write(fmt.Sprintf("data: %s\n\n", mustJSON(chatStreamChunk{
				ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
				Choices: []chatStreamChoice{{Index: 0, Delta: chatDelta{Content: ev.Text}}},
			})))
		case streaming.EventToolCall:
			finishReason = "tool_calls"
			chunk := toolCallChunk{Index: ev.Tool.Index}
			if ev.Tool.Kind == toolsynth.DeltaName {
				chunk.ID = ev.Tool.ID
				chunk.Type = "function"
				chunk.Function = &functionChunk{Name: ev.Tool.Name}
			} else {
				chunk.Function = &functionChunk{Arguments: ev.Tool.Arguments}
			}
			write(fmt.Sprintf("data: %s\n\n", mustJSON(chatStreamChunk{
				ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
				Choices: []chatStreamChoice{{Index: 0, Delta: chatDelta{ToolCalls: []toolCallChunk{chunk}}}},
			})))
		case streaming.EventKeepAlive:
			write(": keepalive\n\n")
		case streaming.EventError:
			se := ev.Err
			if se.Kind != simerrors.KindCancelled {
				write(fmt.Sprintf("data: %s\n\n", mustJSON(gin.H{"error": se.ToStreamChunkError()})))
				write("data: [DONE]\n\n")
			}
			d.Metrics.RecordError("/v1/chat/completions", model, string(se.Kind))
			d.Metrics.RecordRequest("/v1/chat/completions", model, time.Since(start), promptTokens, emittedTokens, true)
			d.recordAudit(model, apiKey, "/v1/chat/completions", "POST", se.StatusCode, start, decision, int64(promptTokens), int64(emittedTokens), true, false, se)
			return
		case streaming.EventDone:
			reason := finishReason
			write(fmt.Sprintf("data: %s\n\n", mustJSON(chatStreamChunk{
				ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
				Choices: []chatStreamChoice{{Index: 0, Delta: chatDelta{}, FinishReason: &reason}},
				Usage: &openai.Usage{PromptTokens: promptTokens, CompletionTokens: emittedTokens, TotalTokens: promptTokens + emittedTokens},
			})))
		}
	}
	write("data: [DONE]\n\n")

	d.Metrics.RecordRequest("/v1/chat/completions", model, time.Since(start), promptTokens, emittedTokens, false)
	d.recordAudit(model, apiKey, "/v1/chat/completions", "POST", http.StatusOK, start, decision, int64(promptTokens), int64(emittedTokens), true, false, nil)
}

func (d *Deps) completeChat(c *gin.Context, ctx context.Context, id string, created int64, model string, params streaming.Params, promptTokens, completionTokensTarget int, decision router.Decision, apiKey string, start time.Time) {
	var content strings.Builder
	var reasoningText strings.Builder
	var calls []toolCallChunk
	emittedTokens := 0
	finishReason := "stop"

	for ev := range streaming.Run(ctx, params) {
		switch ev.Kind {
		case streaming.EventReasoning:
			reasoningText.WriteString(ev.Text)
		case streaming.EventContent:
			content.WriteString(ev.Text)
			emittedTokens++
		case streaming.EventToolCall:
			finishReason = "tool_calls"
			if ev.Tool.Kind == toolsynth.DeltaName {
				calls = append(calls, toolCallChunk{Index: ev.Tool.Index, ID: ev.Tool.ID, Type: "function", Function: &functionChunk{Name: ev.Tool.Name}})
			} else {
				calls[len(calls)-1].Function.Arguments += ev.Tool.Arguments
			}
		case streaming.EventError:
			se := ev.Err
			d.Metrics.RecordError("/v1/chat/completions", model, string(se.Kind))
			d.Metrics.RecordRequest("/v1/chat/completions", model, time.Since(start), promptTokens, emittedTokens, true)
			d.recordAudit(model, apiKey, "/v1/chat/completions", "POST", se.StatusCode, start, decision, int64(promptTokens), int64(emittedTokens), false, false, se)
			if se.Kind != simerrors.KindCancelled {
				writeSimError(c, se)
			}
			return
		case streaming.EventDone:
			// handled after loop
		}
	}

	msg := openai.ChatCompletionMessage{Role: "assistant", Content: content.String()}
	if len(calls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, 0, len(calls))
		for _, tc := range calls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}

	resp := openai.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: openai.FinishReason(finishReason),
		}},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: emittedTokens,
			TotalTokens:      promptTokens + emittedTokens,
		},
	}

	d.Metrics.RecordRequest("/v1/chat/completions", model, time.Since(start), promptTokens, emittedTokens, false)
	d.recordAudit(model, apiKey, "/v1/chat/completions", "POST", http.StatusOK, start, decision, int64(promptTokens), int64(emittedTokens), false, false, nil)
	c.JSON(http.StatusOK, resp)
}

func (d *Deps) recordAudit(model, apiKey, endpoint, method string, status int, start time.Time, decision router.Decision, promptTokens, outputTokens int64, isStream, cached bool, err error) {
	d.Audit.LogResponse(model, apiKey, endpoint, method, status, time.Since(start), decision.WorkerID, decision.CachedTokens, promptTokens, outputTokens, isStream, cached, err)

	if logging.ZapEnabled() {
		fields := []zap.Field{
			logging.ZapEndpoint(endpoint),
			logging.ZapModel(model),
			logging.ZapWorker(decision.WorkerID),
			logging.ZapTokens(promptTokens + outputTokens),
			logging.ZapDurationMs(float64(time.Since(start).Milliseconds())),
			logging.ZapBool("cached", cached),
		}
		if err != nil {
			if se, ok := err.(*simerrors.Error); ok {
				fields = append(fields, logging.ZapErrorKind(string(se.Kind)))
			}
			logging.Zap().Warn(endpoint+" completed with error", append(fields, logging.ZapError(err))...)
			return
		}
		logging.Zap().Info(endpoint+" completed", fields...)
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
