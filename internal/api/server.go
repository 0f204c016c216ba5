// Package api assembles the gin.Engine that serves the simulation core's
// HTTP and WebSocket surface, grounded on the teacher's
// internal/observability route-registration shape (a thin RegisterRoutes
// over a shared engine) adapted to the OpenAI/NIM-compatible simapi
// handlers instead of proxy health/metrics endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/llmsimlab/simcore/internal/api/handlers/simapi"
	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/metricsstream"
)

// NewEngine builds the fully-routed gin.Engine for the simulation
// server.
func NewEngine(cfg *config.Config, deps *simapi.Deps, hub *metricsstream.Hub) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Observability.MetricsEnabled {
		path := cfg.Observability.PrometheusPath
		if path == "" {
			path = "/metrics/prometheus"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(simapi.AuthMiddleware(&cfg.Auth))
	{
		v1.POST("/chat/completions", deps.ChatCompletions)
		v1.POST("/completions", deps.Completions)
		v1.POST("/embeddings", deps.Embeddings)
		v1.POST("/images/generations", deps.Images)
		v1.POST("/audio/speech", deps.Speech)
		v1.POST("/moderations", deps.Moderations)
		v1.POST("/ranking", deps.Rankings)

		v1.POST("/files", deps.CreateFile)
		v1.GET("/files", deps.ListFiles)
		v1.GET("/files/:id", deps.GetFile)
		v1.DELETE("/files/:id", deps.DeleteFile)

		v1.POST("/batches", deps.CreateBatch)
		v1.GET("/batches", deps.ListBatches)
		v1.GET("/batches/:id", deps.GetBatch)

		mgmt := v1.Group("/management")
		{
			mgmt.GET("/metrics", deps.MetricsSnapshot)
			mgmt.GET("/rate-limit-stats", deps.RateLimitStats)
			mgmt.GET("/audit", deps.ListAuditEntries)
			mgmt.GET("/audit/stats", deps.AuditStats)
			mgmt.GET("/audit/export", deps.ExportAudit)
			mgmt.DELETE("/audit", deps.ClearAudit)
			mgmt.GET("/metrics/live", deps.MetricsWS(hub))
		}
	}

	return r
}
