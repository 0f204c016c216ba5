package simapi

import (
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

type embeddingRequest struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	Dimensions     int    `json:"dimensions"`
	EncodingFormat string `json:"encoding_format"`
}

const defaultEmbeddingDimensions = 1536

func embeddingInputs(in any) []string {
	switch v := in.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// unitVector generates a deterministic, seeded pseudo-random vector
// normalized to unit length, matching the shape (not the semantics) of a
// real embedding: same input always produces the same vector, distinct
// inputs produce uncorrelated vectors.
func unitVector(seed int64, dims int) []float32 {
	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, dims)
	var sumSquares float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// Embeddings implements POST /v1/embeddings, returning deterministic
// unit-length vectors derived from each input string's content hash.
func (d *Deps) Embeddings(c *gin.Context) {
	start := time.Now()

	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}
	if req.Model == "" {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "model is required"))
		return
	}

	inputs := embeddingInputs(req.Input)
	if len(inputs) == 0 {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "input is required"))
		return
	}

	dims := req.Dimensions
	if dims <= 0 {
		dims = defaultEmbeddingDimensions
	}

	apiKey := apiKeyFrom(c)
	totalTokens := 0
	data := make([]openai.Embedding, 0, len(inputs))
	for i, text := range inputs {
		totalTokens += est.EstimateText(text)
		seed := generator.SeedFromText(req.Model + "\x00" + text)
		data = append(data, openai.Embedding{
			Object:    "embedding",
			Embedding: unitVector(seed, dims),
			Index:     i,
		})
	}

	rlResult := d.RateLimiter.Allow(apiKey, totalTokens)
	setRateLimitHeaders(c, rlResult)
	if !rlResult.Allowed {
		d.Metrics.RecordError("/v1/embeddings", req.Model, "rate_limit_exceeded")
		writeSimError(c, simerrors.RateLimited("rate limit exceeded for this API key", rlResult.RetryAfterSeconds))
		return
	}

	resp := openai.EmbeddingResponse{
		Object: "list",
		Data:   data,
		Model:  openai.EmbeddingModel(req.Model),
		Usage: openai.Usage{
			PromptTokens: totalTokens,
			TotalTokens:  totalTokens,
		},
	}

	d.Metrics.RecordRequest("/v1/embeddings", req.Model, time.Since(start), totalTokens, 0, false)
	d.recordAudit(req.Model, apiKey, "/v1/embeddings", "POST", http.StatusOK, start, zeroDecision(), int64(totalTokens), 0, false, false, nil)
	c.JSON(http.StatusOK, resp)
}
