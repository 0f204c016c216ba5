package simapi

import (
	"math/rand"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/estimator"
	"github.com/llmsimlab/simcore/internal/ratelimit"
	"github.com/llmsimlab/simcore/internal/router"
	"github.com/llmsimlab/simcore/internal/simerrors"
	"github.com/llmsimlab/simcore/internal/toolsynth"
)

var est = estimator.New()

// apiKeyFrom extracts the bearer token used for rate limiting and
// auditing, falling back to the client address for unauthenticated
// requests so they still get a (shared) rate-limit identity.
func apiKeyFrom(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return "anonymous:" + c.ClientIP()
}

func flattenMessages(messages []openai.ChatCompletionMessage) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Content)
		sb.WriteString(" ")
	}
	return sb.String()
}

// targetCompletionTokens resolves how many tokens the simulated response
// should contain: an explicit max_tokens sets it, otherwise a
// reproducible pseudo-random length is derived from seed.
func targetCompletionTokens(maxTokens int, seed int64) int {
	if maxTokens > 0 {
		return maxTokens
	}
	rng := rand.New(rand.NewSource(seed))
	return 40 + rng.Intn(200)
}

func setRateLimitHeaders(c *gin.Context, res ratelimit.Result) {
	c.Header("X-RateLimit-Limit-Requests", itoa(res.LimitRequests))
	c.Header("X-RateLimit-Remaining-Requests", itoa(res.RemainingRequests))
	c.Header("X-RateLimit-Reset-Requests", itoa(res.ResetRequestsSeconds)+"s")
	c.Header("X-RateLimit-Limit-Tokens", itoa(res.LimitTokens))
	c.Header("X-RateLimit-Remaining-Tokens", itoa(res.RemainingTokens))
	c.Header("X-RateLimit-Reset-Tokens", itoa(res.ResetTokensSeconds)+"s")
	if !res.Allowed {
		c.Header("Retry-After", itoa(res.RetryAfterSeconds))
	}
}

func writeSimError(c *gin.Context, err *simerrors.Error) {
	c.JSON(err.StatusCode, err.ToEnvelope())
}

func convertTools(tools []openai.Tool) []toolsynth.ToolDefinition {
	defs := make([]toolsynth.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		params, _ := t.Function.Parameters.(map[string]any)
		defs = append(defs, toolsynth.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  params,
		})
	}
	return defs
}

func keepAliveInterval(cfg *config.Config) time.Duration {
	if !cfg.Streaming.KeepAliveEnabled {
		return 0
	}
	return time.Duration(cfg.Streaming.KeepAliveIntervalSeconds) * time.Second
}

// deterministicFloats returns n reproducible pseudo-random values in
// [0,1), biased toward the low end so that most categories score well
// below the flagging threshold.
func deterministicFloats(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64() * rng.Float64()
	}
	return out
}

// zeroDecision is used by endpoints that never route through the worker
// pool (embeddings, images, audio) but still log through the same audit
// path as chat completions.
func zeroDecision() router.Decision {
	return router.Decision{WorkerID: -1}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
