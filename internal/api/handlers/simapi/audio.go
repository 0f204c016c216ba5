package simapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llmsimlab/simcore/internal/simerrors"
)

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// silentWAVHeader is a minimal, valid 44-byte WAV header describing zero
// audio frames: enough for a client to parse a well-formed audio/wav
// response without any real synthesis behind it.
var silentWAVHeader = []byte{
	'R', 'I', 'F', 'F', 36, 0, 0, 0, 'W', 'A', 'V', 'E',
	'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
	0x44, 0xac, 0, 0, 0x88, 0x58, 1, 0, 2, 0, 16, 0,
	'd', 'a', 't', 'a', 0, 0, 0, 0,
}

// Speech implements POST /v1/audio/speech: it estimates how long the
// input text would take to narrate and waits out that duration before
// returning a silent, well-formed WAV payload.
func (d *Deps) Speech(c *gin.Context) {
	start := time.Now()

	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	if req.Input == "" {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "input is required"))
		return
	}
	model := req.Model
	if model == "" {
		model = "audio-sim-1"
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	apiKey := apiKeyFrom(c)
	wordTokens := est.EstimateText(req.Input)

	rlResult := d.RateLimiter.Allow(apiKey, wordTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/audio/speech", model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	// Roughly 150 words per minute of narration at normal speed.
	wordsPerSecond := 2.5 * speed
	seconds := float64(wordTokens) / wordsPerSecond
	if seconds < 0.2 {
		seconds = 0.2
	}
	wait := time.Duration(seconds * float64(time.Second))

	select {
	case <-time.After(wait):
	case <-c.Request.Context().Done():
		return
	}

	d.Metrics.RecordRequest("/v1/audio/speech", model, time.Since(start), wordTokens, 0, false)
	d.recordAudit(model, apiKey, "/v1/audio/speech", "POST", http.StatusOK, start, zeroDecision(), int64(wordTokens), 0, false, false, nil)

	c.Header("Content-Type", "audio/wav")
	c.Data(http.StatusOK, "audio/wav", silentWAVHeader)
}
