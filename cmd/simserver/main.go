// Command simserver starts the simulation core's HTTP server: it loads
// configuration, wires every simulation component into a shared Deps
// struct, and serves the OpenAI/NIM-compatible API surface until it
// receives SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/llmsimlab/simcore/internal/api"
	"github.com/llmsimlab/simcore/internal/api/handlers/simapi"
	"github.com/llmsimlab/simcore/internal/audit"
	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/contextwindow"
	"github.com/llmsimlab/simcore/internal/errorinjection"
	"github.com/llmsimlab/simcore/internal/generator"
	"github.com/llmsimlab/simcore/internal/logging"
	"github.com/llmsimlab/simcore/internal/metrics"
	"github.com/llmsimlab/simcore/internal/metricsstream"
	"github.com/llmsimlab/simcore/internal/promptcache"
	"github.com/llmsimlab/simcore/internal/ratelimit"
	"github.com/llmsimlab/simcore/internal/router"
	"github.com/llmsimlab/simcore/internal/store"
	"github.com/llmsimlab/simcore/internal/workerpool"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	useZap := flag.Bool("zap", false, "use the Zap structured logger for the per-request audit trail")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logging.Init(logging.DefaultConfig(cfg.Debug))
	if *useZap {
		if err := logging.InitZapLoggerSimple(cfg.Debug); err != nil {
			log.Warnf("failed to initialize zap logger: %v", err)
		} else {
			log.Info("zap structured logger initialized")
			defer logging.ZapSync()
		}
	}

	deps := buildDeps(cfg)

	hub := metricsstream.New(deps.Metrics, time.Duration(cfg.Observability.BroadcastTickMs)*time.Millisecond)
	stopHub := make(chan struct{})
	go hub.Run(stopHub)
	defer close(stopHub)

	if *configPath != "" {
		stopWatch, err := config.Watch(*configPath, func(next *config.Config) {
			deps.RateLimiter = ratelimit.New(next.RateLimit)
			deps.ErrorInjection = errorinjection.New(next.ErrorInjection)
			log.Info("reloaded rate-limit tiers and error-injection knobs from config")
		})
		if err != nil {
			log.Warnf("failed to start config watcher: %v", err)
		} else {
			defer stopWatch()
		}
	}

	engine := api.NewEngine(cfg, deps, hub)

	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(port),
		Handler: engine,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Infof("simulation server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("server exited with error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining in-flight requests")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
}

// buildDeps constructs every simulation component from cfg and wires them
// into a single Deps struct shared across all handlers.
func buildDeps(cfg *config.Config) *simapi.Deps {
	pool := workerpool.New(cfg.KVCache.NumWorkers, cfg.KVCache.BlockSize)

	registry := metrics.New("simcore", prometheus.DefaultRegisterer)

	return &simapi.Deps{
		Config:    cfg,
		Generator: generator.New(),
		Pool:      pool,
		Router:    router.New(pool, cfg.KVCache),
		RateLimiter: ratelimit.New(cfg.RateLimit),
		PromptCache: promptcache.New(
			time.Duration(cfg.PromptCache.TTLSeconds)*time.Second,
			cfg.PromptCache.MinTokensForCache,
			cfg.PromptCache.MaxEntries,
		),
		ContextWin: contextwindow.New(nil, contextwindow.Reserve{ResponseTokens: 256, ToolTokens: 256}),
		Metrics:    registry,
		Audit: audit.New(audit.Config{
			Enabled:        cfg.Audit.Enabled,
			MaxEntries:     cfg.Audit.MaxEntries,
			RetentionHours: cfg.Audit.RetentionHours,
			LogRequests:    true,
			LogResponses:   true,
			LogErrors:      true,
		}),
		ErrorInjection: errorinjection.New(cfg.ErrorInjection),
		Files:          store.New[simapi.FileObject](),
		Batches:        store.New[simapi.BatchObject](),
	}
}

