package simapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

// rankingRequest mirrors NVIDIA NIM's /v1/ranking request shape: a query
// and a list of passages to be scored and ordered by relevance.
type rankingRequest struct {
	Model     string `json:"model"`
	Query     struct {
		Text string `json:"text"`
	} `json:"query"`
	Passages []struct {
		Text string `json:"text"`
	} `json:"passages"`
	Truncate string `json:"truncate"`
}

type rankingEntry struct {
	Index int     `json:"index"`
	Logit float64 `json:"logit"`
}

type rankingResponse struct {
	Rankings []rankingEntry `json:"rankings"`
	Usage    struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Rankings implements POST /v1/ranking, the NIM reranker surface: each
// passage gets a deterministic relevance logit derived from the
// query+passage pair, and the result set is sorted by descending logit
// the way a real reranker's output is consumed.
func (d *Deps) Rankings(c *gin.Context) {
	start := time.Now()

	var req rankingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	if req.Query.Text == "" || len(req.Passages) == 0 {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "query and passages are required"))
		return
	}
	model := req.Model
	if model == "" {
		model = "rerank-sim-1"
	}

	apiKey := apiKeyFrom(c)
	totalTokens := est.EstimateText(req.Query.Text)

	entries := make([]rankingEntry, 0, len(req.Passages))
	for i, p := range req.Passages {
		totalTokens += est.EstimateText(p.Text)
		seed := generator.SeedFromText(req.Query.Text + "\x00" + p.Text)
		scores := deterministicFloats(seed, 1)
		// Map [0,1) onto a logit-like range so higher relevance produces a
		// larger positive number, matching how real rerankers report scores.
		logit := scores[0]*20 - 10
		entries = append(entries, rankingEntry{Index: i, Logit: logit})
	}

	rlResult := d.RateLimiter.Allow(apiKey, totalTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/ranking", model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Logit > entries[j].Logit })

	resp := rankingResponse{Rankings: entries}
	resp.Usage.PromptTokens = totalTokens
	resp.Usage.TotalTokens = totalTokens

	d.Metrics.RecordRequest("/v1/ranking", model, time.Since(start), totalTokens, 0, false)
	d.recordAudit(model, apiKey, "/v1/ranking", "POST", http.StatusOK, start, zeroDecision(), int64(totalTokens), 0, false, false, nil)
	c.JSON(http.StatusOK, resp)
}
