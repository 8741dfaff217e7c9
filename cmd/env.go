package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/budget"
	"github.com/courtline/content-cli/internal/cost"
	"github.com/courtline/content-cli/internal/editorial"
	"github.com/courtline/content-cli/internal/images"
	"github.com/courtline/content-cli/internal/pipeline"
	"github.com/courtline/content-cli/internal/planner"
	"github.com/courtline/content-cli/internal/safety"
	"github.com/courtline/content-cli/internal/store"
	anthropicpkg "github.com/courtline/content-cli/pkg/anthropic"
	"github.com/courtline/content-cli/pkg/dalle"
	"github.com/courtline/content-cli/pkg/notion"
	"github.com/courtline/content-cli/pkg/unsplash"
)

// pipelineEnv holds the initialized store, clients, and pipeline shared by
// the generate/titles/serve commands.
type pipelineEnv struct {
	Store    store.Store
	AI       anthropicpkg.Client
	Pipeline *pipeline.Pipeline
	Planner  *planner.Planner
	Budget   *budget.Tracker
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "content.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, API clients, and the generation pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (CONTENT_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	if cfg.Anthropic.RequestsPerSecond > 0 {
		aiClient = anthropicpkg.NewRateLimited(aiClient, cfg.Anthropic.RequestsPerSecond)
	}

	tax, err := safety.LoadTaxonomy(cfg.Safety.TaxonomyPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	gate := safety.NewGate(aiClient, cfg.Anthropic.HaikuModel, tax,
		safety.WithMaxContentChars(cfg.Safety.ContentCheckChars),
		safety.WithDisabled(cfg.Safety.Disabled),
	)

	style, err := pipeline.LoadStyleProfile(cfg.Pipeline.StyleProfilePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	spend := budget.NewTracker(cfg.Pipeline.DailyBudgetUSD)

	var curator pipeline.ImageCurator
	if !cfg.Images.Disabled && cfg.Images.UnsplashKey != "" {
		var dalleClient dalle.Client
		if cfg.Images.OpenAIKey != "" {
			dalleClient = dalle.NewClient(cfg.Images.OpenAIKey)
		}
		curator = images.New(
			unsplash.NewClient(cfg.Images.UnsplashKey),
			dalleClient,
			cost.NewCalculator(cost.DefaultRates()),
			images.WithGeneratedBudget(budget.NewTracker(float64(cfg.Images.MaxDailyGenerated))),
		)
	} else {
		zap.L().Info("image curation disabled")
	}

	var notifier pipeline.Notifier
	if cfg.Notion.Token != "" && cfg.Notion.ReviewDB != "" {
		notifier = editorial.New(notion.NewClient(cfg.Notion.Token), cfg.Notion.ReviewDB)
	} else {
		zap.L().Info("notion not configured, review escalations will be log-only")
	}

	return &pipelineEnv{
		Store:    st,
		AI:       aiClient,
		Pipeline: pipeline.New(cfg, st, aiClient, gate, curator, notifier, spend,
			pipeline.WithStyleProfile(style)),
		Planner:  planner.New(cfg, st, aiClient),
		Budget:   spend,
	}, nil
}
