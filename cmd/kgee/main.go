// KGEE server - knowledge-graph extraction pipeline and research supervisor
// behind an HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kgee-io/kgee/pkg/api"
	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/events"
	"github.com/kgee-io/kgee/pkg/extraction"
	"github.com/kgee-io/kgee/pkg/hygiene"
	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/ner"
	"github.com/kgee-io/kgee/pkg/preprocess"
	"github.com/kgee-io/kgee/pkg/prompt"
	"github.com/kgee-io/kgee/pkg/research"
	"github.com/kgee-io/kgee/pkg/session"
	"github.com/kgee-io/kgee/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Info("No .env file loaded, using existing environment", "path", envPath)
	}

	slog.Info("Starting KGEE", "version", version.Full(), "config_dir", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// LLM gateway: local runner when the default provider is local-typed;
	// Gemini when a key is present.
	registry := llm.NewModelRegistry(&llm.StaticModelSource{
		Models:   cfg.LLM.Models,
		Fallback: "nemotron-3-nano:latest",
	}, cfg.LLM.RegistryTTL())
	ledger := llm.NewCostLedger()

	var backends []llm.Backend
	var embedder extraction.Embedder
	if local, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok && local.Type == config.ProviderLocal {
		backends = append(backends, llm.NewLocalBackend(local.BaseURL))
	}
	for name, provider := range cfg.LLM.Providers {
		if provider.Type != config.ProviderGemini {
			continue
		}
		gemini, err := llm.NewGeminiBackend(ctx, provider.APIKey)
		if err != nil {
			slog.Warn("Gemini backend disabled", "provider", name, "error", err)
			continue
		}
		backends = append(backends, gemini)
		embedder = gemini
	}
	gateway := llm.NewGateway(backends, cfg.LLM.DefaultProvider, registry, ledger)

	// Extraction core.
	resolver := prompt.NewResolver(nil, cfg.Features.DSPyPrompts())
	executor := extraction.NewExecutor(gateway, resolver)
	nerRegistry := ner.NewRegistry()
	consolidator := extraction.NewConsolidator(extraction.ConsolidatorConfig{
		MinLength:           cfg.Extraction.MinEntityNameLength,
		MaxLength:           cfg.Extraction.MaxEntityNameLength,
		SimilarityThreshold: cfg.Extraction.DedupSimilarity,
		StripArticles:       cfg.Features.EntityFilter(),
	}, embedder)
	windower := preprocess.NewWindower(cfg.Extraction.WindowSize,
		cfg.Extraction.WindowOverlap, cfg.Extraction.CrossSentenceThreshold)
	pipeline := extraction.NewPipeline(cfg.Extraction.Pipeline, executor, nerRegistry,
		consolidator, windower, cfg.Features, cfg.Extraction.CorefMaxDistance)
	cascade := extraction.NewCascade(cfg.Extraction.Cascade, executor, nerRegistry, pipeline)
	gleaner := extraction.NewGleaner(executor, cascade, cfg.Extraction.GleaningSteps)
	extractionService := extraction.NewService(cfg.Features, pipeline, cascade, gleaner,
		hygiene.NewValidator(false), cfg.Extraction.MaxConcurrentDocuments)

	// Research supervisor over the retriever collaborator.
	retriever := newRetrieverFromEnv()
	runner := research.NewRunner(
		research.NewPlanner(gateway),
		research.NewSearcher(retriever),
		research.NewSynthesizer(gateway, cfg.Research.MaxContextLength),
		time.Duration(cfg.Research.StepTimeoutSeconds)*time.Second,
	)

	// Sessions, events, HTTP.
	broker := events.NewBroker()
	sessions := session.NewManager(cfg.Research.SessionRetention(), broker)
	go sessions.RunEviction(ctx, time.Minute)

	connManager := events.NewConnectionManager(broker, 5*time.Second)
	server := api.NewServer(cfg, sessions, runner, broker, connManager)
	server.SetExtractor(extractionService)

	if err := server.Start(ctx, cfg.Server.Port); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
