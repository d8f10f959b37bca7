package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quillscribe/internal/config"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
	aiAdapters "quillscribe/internal/infra/adapters/ai"
	"quillscribe/internal/infra/adapters/whisper"
	"quillscribe/internal/infra/cache"
	"quillscribe/internal/infra/logging"
	"quillscribe/internal/infra/metrics"
	"quillscribe/internal/infra/sched"
	"quillscribe/internal/infra/store"
	"quillscribe/internal/infra/web"
	"quillscribe/internal/infra/worker"
	"quillscribe/internal/service"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, stub engines allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Worker pool ----
	poolSize := cfg.Transcription.MaxConcurrent + cfg.Enhancement.MaxConcurrent + 2
	pool := worker.NewPool(poolSize, logger)
	pool.Start(ctx)
	defer pool.Stop()

	// ---- Transcription engine ----
	var tEngine adapter.TranscriptionEngine
	whisperEngine, err := whisper.New(cfg.Transcription.BinaryPath, cfg.Transcription.ModelDir, cfg.Transcription.ThreadCount, logger)
	if err != nil {
		log.Fatalf("whisper engine: %v", err)
	}
	tEngine = whisperEngine

	defaultModel := model.TranscriptionProvider(cfg.Transcription.DefaultModel)
	if err := tEngine.LoadModel(ctx, defaultModel); err != nil {
		if cfg.Runtime.Dev {
			logger.Warn().Err(err).Msg("whisper model missing, using stub engine")
			stub := whisper.NewStubEngine(200 * time.Millisecond)
			_ = stub.LoadModel(ctx, defaultModel)
			tEngine = stub
		} else {
			log.Fatalf("load model %s: %v", defaultModel, err)
		}
	}

	// ---- Enhancement engine (Gemini -> OpenAI-compatible -> stub in dev) ----
	var engines []adapter.EnhancementEngine
	if cfg.Enhancement.GeminiKey != "" {
		g, err := aiAdapters.NewGeminiEngine(ctx, cfg.Enhancement.GeminiKey, cfg.Enhancement.GeminiURL, 0)
		if err != nil {
			log.Fatalf("gemini engine: %v", err)
		}
		engines = append(engines, aiAdapters.NewLimited(g, cfg.Enhancement.ProviderLimit))
		logger.Info().Str("base", cfg.Enhancement.GeminiURL).Msg("enhancement engine: gemini")
	}
	if cfg.Enhancement.OpenAIKey != "" || cfg.Enhancement.OpenAIBaseURL != "" {
		o, err := aiAdapters.NewOpenAIEngine(cfg.Enhancement.OpenAIKey, cfg.Enhancement.OpenAIBaseURL, cfg.Enhancement.DefaultModel)
		if err != nil {
			log.Fatalf("openai engine: %v", err)
		}
		engines = append(engines, aiAdapters.NewLimited(o, cfg.Enhancement.ProviderLimit))
		logger.Info().Str("base", cfg.Enhancement.OpenAIBaseURL).Msg("enhancement engine: openai-compatible")
	}
	if len(engines) == 0 {
		if !cfg.Runtime.Dev {
			log.Fatalf("no enhancement provider configured: set enhancement.gemini_key or enhancement.openai_key in %s", *cfgPath)
		}
		logger.Warn().Msg("no enhancement provider configured, using stub engine")
		engines = append(engines, aiAdapters.NewStubEngine(200*time.Millisecond))
	}
	eEngine := aiAdapters.NewMultiEngine(engines...)

	// ---- Cache and store ----
	var rc *cache.ResultCache
	if cfg.Cache.Enabled {
		rc = cache.New("results", cfg.Cache.TTL, cfg.Cache.MaxBytes)
	}
	memStore := store.NewMemoryStore()

	// ---- Services ----
	tSvc := service.NewTranscriptionService(
		tEngine, memStore, rc, pool,
		service.Policy{
			MaxConcurrent:  cfg.Transcription.MaxConcurrent,
			DefaultTimeout: cfg.Transcription.Timeout,
			MaxRetries:     cfg.Transcription.MaxRetries,
			CachingEnabled: cfg.Cache.Enabled,
		},
		defaultModel, cfg.Transcription.Language, logger,
	)
	defer tSvc.Shutdown()

	eSvc := service.NewEnhancementService(
		eEngine, memStore, rc, pool,
		service.Policy{
			MaxConcurrent:  cfg.Enhancement.MaxConcurrent,
			DefaultTimeout: cfg.Enhancement.Timeout,
			MaxRetries:     cfg.Enhancement.MaxRetries,
			CachingEnabled: cfg.Cache.Enabled,
		},
		model.EnhancementProvider(cfg.Enhancement.DefaultProvider), logger,
	)
	defer eSvc.Shutdown()

	// ---- Retention sweeps ----
	retention := sched.NewRetentionWorker(time.Minute, logger)
	retention.Register("transcription_jobs", tSvc.Sweep)
	retention.Register("enhancement_jobs", eSvc.Sweep)
	if rc != nil {
		retention.Register("result_cache", func() int {
			before := rc.Len()
			rc.Evict()
			return before - rc.Len()
		})
	}
	go func() { _ = retention.Run(ctx) }()

	// ---- Admin server ----
	auth := web.NewAuthManager(cfg.Admin.SessionSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(
		fmt.Sprintf(":%d", cfg.Admin.Port),
		tSvc, eSvc, rc, auth, cfg.Admin.APIKey, logger,
	)
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
