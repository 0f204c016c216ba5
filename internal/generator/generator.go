// Package generator synthesizes plausible filler text without running a
// real language model. It never reads the meaning of a prompt; it only
// uses the prompt's hash to seed deterministic, reproducible output so
// repeated simulation runs against the same request are stable.
package generator

import (
	"hash/fnv"
	"math/rand"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
)

// Generator produces word-level token chunks. The zero value generates
// chunks normally; having no codec, its RealTokenCount returns -1.
type Generator struct {
	codec tokenizer.Codec
}

// New builds a Generator. The real BPE codec is used only for an
// observability cross-check (RealTokenCount); if it fails to load, the
// Generator still works and simply skips that cross-check.
func New() *Generator {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.WithError(err).Warn("generator: tiktoken codec unavailable, disabling cross-check")
		return &Generator{}
	}
	return &Generator{codec: codec}
}

// SeedFromText derives a deterministic seed from arbitrary input, used to
// make a given prompt always produce the same filler content.
func SeedFromText(text string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return int64(h.Sum64())
}

// GenerateChunks returns exactly n word-level chunks of filler text. Each
// chunk is what the streaming engine emits as one content delta, so the
// caller's completion_tokens accounting is simply len(result). n<=0
// returns an empty, non-nil slice.
func (g *Generator) GenerateChunks(seed int64, n int) []string {
	if n <= 0 {
		return []string{}
	}
	rng := rand.New(rand.NewSource(seed))
	chunks := make([]string, 0, n)
	wordsSinceConnector := 0
	startOfSentence := true

	for i := 0; i < n; i++ {
		word := wordBank[rng.Intn(len(wordBank))]

		switch {
		case startOfSentence:
			word = strings.ToUpper(word[:1]) + word[1:]
			startOfSentence = false
		case wordsSinceConnector >= 6 && rng.Intn(3) == 0:
			word = sentenceConnectors[rng.Intn(len(sentenceConnectors))]
			wordsSinceConnector = 0
		default:
			wordsSinceConnector++
		}

		if i == n-1 {
			word += "."
			startOfSentence = true
		} else if rng.Intn(9) == 0 {
			word += ","
		}

		if i > 0 {
			chunks = append(chunks, " "+word)
		} else {
			chunks = append(chunks, word)
		}
	}
	return chunks
}

// GenerateText is a convenience wrapper returning the flattened string for
// chunks a caller already generated (non-streaming responses).
func GenerateText(chunks []string) string {
	return strings.Join(chunks, "")
}

// RealTokenCount reports the real BPE token count of text, or -1 if the
// codec failed to load. It is never used to decide how many chunks to
// emit; it exists only so operators can compare simulator "tokens"
// against what a real tokenizer would have counted.
func (g *Generator) RealTokenCount(text string) int {
	if g.codec == nil {
		return -1
	}
	ids, _, err := g.codec.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}

// LogDivergence emits a debug log line comparing the simulator's chunk
// count against the real tokenizer's count for the same text, when the
// codec is available.
func (g *Generator) LogDivergence(requestID, text string, chunkCount int) {
	real := g.RealTokenCount(text)
	if real < 0 {
		return
	}
	log.WithFields(log.Fields{
		"request_id":       requestID,
		"simulated_tokens": chunkCount,
		"tiktoken_tokens":  real,
	}).Debug("generator: simulated vs real token count")
}
