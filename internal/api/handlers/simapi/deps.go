// Package simapi implements the OpenAI/NIM-compatible HTTP surface: gin
// handlers for chat/completions, completions, embeddings, images, audio,
// moderations, and rankings, plus the management endpoints (metrics,
// files, batches, audit). It is grounded on the teacher's handler layout
// (internal/api/handlers/...) and on sdk/api/types/openai_compat.go's
// choice of github.com/sashabaranov/go-openai as the canonical wire-type
// library.
package simapi

import (
	"github.com/llmsimlab/simcore/internal/audit"
	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/contextwindow"
	"github.com/llmsimlab/simcore/internal/errorinjection"
	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/metrics"
	"github.com/llmsimlab/simcore/internal/promptcache"
	"github.com/llmsimlab/simcore/internal/ratelimit"
	"github.com/llmsimlab/simcore/internal/router"
	"github.com/llmsimlab/simcore/internal/store"
	"github.com/llmsimlab/simcore/internal/workerpool"
)

// FileObject is the simulated shape of an uploaded file (the /v1/files
// surface), content is never actually stored.
type FileObject struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

// BatchObject is the simulated shape of a batch job.
type BatchObject struct {
	ID               string `json:"id"`
	Object           string `json:"object"`
	Endpoint         string `json:"endpoint"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"created_at"`
	CompletedAt      int64  `json:"completed_at,omitempty"`
	RequestCounts    struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"request_counts"`
}

// Deps bundles every simulation-core component a handler needs. One Deps
// is built at startup and shared across all requests.
type Deps struct {
	Config      *config.Config
	Generator   *generator.Generator
	Pool        *workerpool.Pool
	Router      *router.Router
	RateLimiter *ratelimit.Limiter
	PromptCache *promptcache.Cache
	ContextWin  *contextwindow.Validator
	Metrics     *metrics.Registry
	Audit       *audit.Logger
	ErrorInjection *errorinjection.Injector
	Files       *store.Store[FileObject]
	Batches     *store.Store[BatchObject]
}
