package simapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

type moderationRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type moderationResult struct {
	Flagged                bool               `json:"flagged"`
	Categories             map[string]bool    `json:"categories"`
	CategoryScores         map[string]float64 `json:"category_scores"`
}

type moderationResponse struct {
	ID      string              `json:"id"`
	Model   string              `json:"model"`
	Results []moderationResult  `json:"results"`
}

var moderationCategories = []string{
	"sexual", "hate", "harassment", "self-harm", "violence",
	"sexual/minors", "hate/threatening", "violence/graphic",
}

// flaggedTriggerWords is a small, deliberately obvious set of substrings
// used to decide whether a simulated moderation check flags an input: a
// simulator never runs a real safety classifier, but callers still need
// a flagged=true path to exercise.
var flaggedTriggerWords = []string{"simulate-flag", "trigger-moderation"}

// Moderations implements POST /v1/moderations: scores are deterministic
// pseudo-random values derived from the input's seed. flagged is true when
// the input contains one of flaggedTriggerWords, giving callers a reliable
// way to reach that branch, and also whenever any category score exceeds
// 0.8.
func (d *Deps) Moderations(c *gin.Context) {
	start := time.Now()

	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}

	inputs := embeddingInputs(req.Input)
	if len(inputs) == 0 {
		if s, ok := req.Input.(string); ok {
			inputs = []string{s}
		}
	}
	if len(inputs) == 0 {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "input is required"))
		return
	}

	model := req.Model
	if model == "" {
		model = "omni-moderation-sim"
	}

	apiKey := apiKeyFrom(c)
	results := make([]moderationResult, 0, len(inputs))
	totalTokens := 0
	for _, text := range inputs {
		totalTokens += est.EstimateText(text)
		seed := generator.SeedFromText(model + "\x00" + text)
		results = append(results, scoreModeration(text, seed))
	}

	rlResult := d.RateLimiter.Allow(apiKey, totalTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/moderations", model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	resp := moderationResponse{
		ID:      "modr-sim",
		Model:   model,
		Results: results,
	}

	d.Metrics.RecordRequest("/v1/moderations", model, time.Since(start), totalTokens, 0, false)
	d.recordAudit(model, apiKey, "/v1/moderations", "POST", http.StatusOK, start, zeroDecision(), int64(totalTokens), 0, false, false, nil)
	c.JSON(http.StatusOK, resp)
}

func scoreModeration(text string, seed int64) moderationResult {
	lower := strings.ToLower(text)
	flagged := false
	for _, trigger := range flaggedTriggerWords {
		if strings.Contains(lower, trigger) {
			flagged = true
			break
		}
	}

	categories := make(map[string]bool, len(moderationCategories))
	scores := make(map[string]float64, len(moderationCategories))
	rng := deterministicFloats(seed, len(moderationCategories))
	for i, cat := range moderationCategories {
		score := rng[i]
		if flagged && i == 0 {
			score = 0.95
		}
		scores[cat] = score
		categories[cat] = score > 0.8
	}
	if !flagged {
		for _, v := range categories {
			if v {
				flagged = true
				break
			}
		}
	}

	return moderationResult{Flagged: flagged, Categories: categories, CategoryScores: scores}
}
