// Package app wires the store, language model, TAG engine, router and Strava sync together
// for the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/stridelake/stridelake/agent/pkg/chat"
	"github.com/stridelake/stridelake/agent/pkg/llm"
	"github.com/stridelake/stridelake/agent/pkg/tag"
	"github.com/stridelake/stridelake/internal/config"
	"github.com/stridelake/stridelake/pkg/store"
	"github.com/stridelake/stridelake/pkg/strava"
)

const defaultOllamaModel = "llama3.1:8b"

type App struct {
	Log    *slog.Logger
	Config *config.Config

	DB     *store.DB
	LLM    llm.Client
	Schema *store.SchemaDescriber
	TAG    *tag.Retriever
	Chat   *chat.Router

	// Strava and Syncer are nil when no Strava credentials are configured.
	Strava *strava.Client
	Syncer *strava.Syncer
}

// New connects to the database and builds every component. Callers must Close the App.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := store.Open(ctx, store.Config{
		Logger:   log,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		Database: cfg.PostgresDB,
		Username: cfg.PostgresUser,
		Password: cfg.PostgresPassword,
	})
	if err != nil {
		return nil, err
	}

	a, err := build(log, cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func build(log *slog.Logger, cfg *config.Config, db *store.DB) (*App, error) {
	client, err := NewLLM(log, cfg)
	if err != nil {
		return nil, err
	}

	schema, err := store.NewSchemaDescriber(store.SchemaDescriberConfig{Logger: log, Columns: db})
	if err != nil {
		return nil, fmt.Errorf("failed to create schema describer: %w", err)
	}

	engine, err := tag.New(tag.Config{
		Logger:      log,
		LLM:         client,
		Store:       db,
		Schema:      schema,
		MaxAttempts: cfg.TAGMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag retriever: %w", err)
	}

	basic, err := chat.NewBasicRetriever(chat.BasicConfig{Logger: log, LLM: client})
	if err != nil {
		return nil, fmt.Errorf("failed to create basic retriever: %w", err)
	}

	router, err := chat.NewRouter(chat.RouterConfig{
		Logger: log,
		LLM:    client,
		TAG:    chat.NewTAGRetriever(engine),
		Basic:  basic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	a := &App{
		Log:    log,
		Config: cfg,
		DB:     db,
		LLM:    client,
		Schema: schema,
		TAG:    engine,
		Chat:   router,
	}

	if !cfg.StravaConfigured() {
		log.Warn("app: strava credentials not configured, sync and athlete auth are disabled")
		return a, nil
	}
	a.Strava, err = strava.NewClient(strava.Config{
		Logger:       log,
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURI:  cfg.StravaRedirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create strava client: %w", err)
	}
	a.Syncer, err = strava.NewSyncer(strava.SyncerConfig{
		Logger:      log,
		API:         a.Strava,
		Store:       db,
		Concurrency: cfg.SyncConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create syncer: %w", err)
	}
	return a, nil
}

// NewLLM builds the language-model client selected by LLM_PROVIDER.
func NewLLM(log *slog.Logger, cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model := cfg.LLMModel
		if model == "" {
			model = defaultOllamaModel
		}
		c, err := llm.NewOllamaClient(llm.OllamaConfig{Logger: log, BaseURL: cfg.OllamaURL, Model: model})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderAnthropic:
		c, err := llm.NewAnthropicClient(llm.AnthropicConfig{
			Logger: log,
			APIKey: cfg.AnthropicAPIKey,
			Model:  anthropic.Model(cfg.LLMModel),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	if a.Syncer != nil {
		a.Syncer.Close()
	}
	a.DB.Close()
}
