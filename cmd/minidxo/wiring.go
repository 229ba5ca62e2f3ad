package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/minidxo/internal/adapters/events"
	kbindex "github.com/PabloGalante/minidxo/internal/adapters/knowledge"
	"github.com/PabloGalante/minidxo/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/minidxo/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/minidxo/internal/adapters/storage/memory"
	pgstore "github.com/PabloGalante/minidxo/internal/adapters/storage/postgres"
	sqlitestore "github.com/PabloGalante/minidxo/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/minidxo/internal/adapters/websearch"
	"github.com/PabloGalante/minidxo/internal/app/agentflow"
	"github.com/PabloGalante/minidxo/internal/app/conversation"
	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/app/tools"
	"github.com/PabloGalante/minidxo/internal/app/triage"
	"github.com/PabloGalante/minidxo/internal/config"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

// app holds everything a command needs plus the closers to release it.
type app struct {
	cfg     *config.Config
	llm     domain.LLMClient
	policy  *knowledge.Policy
	service *conversation.Service

	closers []func() error
}

func (rt *app) onClose(fn func() error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (rt *app) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// buildPolicy wires the engine, trusted index and web search.
func buildPolicy(ctx context.Context, cfg *config.Config) (*app, error) {
	rt := &app{cfg: cfg}
	log := observability.Logger()

	var embedder kbindex.Embedder
	if cfg.UseMockLLM {
		log.Info("using mock LLM and lexical embeddings")
		rt.llm = llm.NewMockLLM()
		embedder = kbindex.NewHashEmbedder()
	} else {
		log.Info("using Gemini on Vertex AI", "project", cfg.GCPProjectID, "location", cfg.GCPLocation, "model", cfg.ModelName)
		gc, err := llm.NewGeminiClient(ctx, llm.GeminiOptions{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			Model:     cfg.ModelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		rt.llm = gc
		embedder = kbindex.NewGeminiEmbedder(gc.Client(), cfg.EmbeddingModel)
	}

	index, err := kbindex.Build(ctx, cfg.KnowledgeSource, embedder, cfg.KnowledgeMinScore)
	if err != nil {
		return nil, fmt.Errorf("build knowledge index: %w", err)
	}
	log.Info("knowledge index ready", "source", cfg.KnowledgeSource, "chunks", index.Len())

	var web domain.WebSearch = websearch.NewDuckDuckGo(cfg.WebSearchEndpoint, cfg.LookupTimeout)
	if cfg.WebCachePath != "" {
		cached, err := websearch.NewCachedSearch(web, cfg.WebCachePath, cfg.WebCacheTTL)
		if err != nil {
			return nil, err
		}
		if n, err := cached.Purge(); err != nil {
			log.Warn("web cache purge failed", "error", err)
		} else if n > 0 {
			log.Info("purged expired web cache entries", "count", n)
		}
		rt.onClose(cached.Close)
		web = cached
	}

	rt.policy = knowledge.NewPolicy(index, web, cfg.TopK, cfg.LookupTimeout)
	return rt, nil
}

// buildRuntime wires the full conversation service on top of buildPolicy.
func buildRuntime(ctx context.Context, cfg *config.Config) (*app, error) {
	rt, err := buildPolicy(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, messages, err := openStores(ctx, rt)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	var publisher domain.EventPublisher = events.Noop{}
	if cfg.NATSURL != "" {
		np, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.onClose(func() error {
			np.Close()
			return nil
		})
		publisher = np
	}

	agent := triage.NewAgent(rt.llm, rt.policy, triage.Options{
		EngineTimeout:   cfg.EngineTimeout,
		MaxLookups:      tools.DefaultMaxLookups,
		Temperature:     triage.DefaultTemperature,
		MaxOutputTokens: triage.DefaultMaxOutputTokens,
	})
	panel := agentflow.NewPanel(rt.llm, cfg.MaxConsensusRounds, cfg.EngineTimeout)

	rt.service = conversation.NewService(sessions, messages, agent, panel, publisher, conversation.Options{
		RecallDepth:    cfg.RecallDepth,
		PanelByDefault: cfg.ConsensusEnabled,
	})
	return rt, nil
}

func openStores(ctx context.Context, rt *app) (domain.SessionStore, domain.MessageStore, error) {
	cfg := rt.cfg
	log := observability.Logger()

	switch cfg.StorageBackend {
	case config.StorageFirestore:
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		st, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("init firestore store: %w", err)
		}
		rt.onClose(st.Close)
		return st, st, nil

	case config.StorageSQLite:
		log.Info("using SQLite storage", "path", cfg.SQLitePath)
		st, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		rt.onClose(st.Close)
		return st, st, nil

	case config.StoragePostgres:
		log.Info("using Postgres storage")
		st, err := pgstore.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		rt.onClose(func() error {
			st.Close()
			return nil
		})
		return st, st, nil

	default:
		log.Info("using in-memory storage")
		return memstore.NewSessionStore(), memstore.NewMessageStore(), nil
	}
}
