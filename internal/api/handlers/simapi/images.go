package simapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

// placeholderPNGBase64 is a 1x1 transparent PNG, reused for every synthesized
// image: the content is never meant to reflect the prompt, only the
// envelope and timing matter for a simulation target.
const placeholderPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNk+A8AAQUBAScY42YAAAAASUVORK5CYII="

// Images implements POST /v1/images/generations. No actual image is
// synthesized; a fixed placeholder payload is returned so clients can
// exercise their response-handling code against a stable wire shape.
func (d *Deps) Images(c *gin.Context) {
	start := time.Now()

	var req imageGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	if req.Prompt == "" {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "prompt is required"))
		return
	}
	if req.N <= 0 {
		req.N = 1
	}
	model := req.Model
	if model == "" {
		model = "image-sim-1"
	}

	apiKey := apiKeyFrom(c)
	promptTokens := est.EstimateText(req.Prompt)

	rlResult := d.RateLimiter.Allow(apiKey, promptTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/images/generations", model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	seed := generator.SeedFromText(model + "\x00" + req.Prompt)

	// Simulated image generation latency scales with the number of images
	// requested instead of the streaming TTFT/ITL model: there is no token
	// stream for an image response.
	delay := time.Duration(d.Config.Simulation.TTFTMs) * time.Millisecond * time.Duration(req.N)
	select {
	case <-time.After(delay):
	case <-c.Request.Context().Done():
		return
	}

	data := make([]openai.ImageResponseDataInner, 0, req.N)
	for i := 0; i < req.N; i++ {
		entry := openai.ImageResponseDataInner{}
		if req.ResponseFormat == "url" {
			entry.URL = fmt.Sprintf("https://sim.local/images/%x-%d.png", seed, i)
		} else {
			entry.B64JSON = placeholderPNGBase64
		}
		data = append(data, entry)
	}

	resp := openai.ImageResponse{
		Created: time.Now().Unix(),
		Data:    data,
	}

	d.Metrics.RecordRequest("/v1/images/generations", model, time.Since(start), promptTokens, 0, false)
	d.recordAudit(model, apiKey, "/v1/images/generations", "POST", http.StatusOK, start, zeroDecision(), int64(promptTokens), 0, false, false, nil)
	c.JSON(http.StatusOK, resp)
}
