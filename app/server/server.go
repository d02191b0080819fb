package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"docchat/answer"
	"docchat/app/agent"
	"docchat/app/api"
	"docchat/index"
	"docchat/model"
	"docchat/store"
	"docchat/types"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    50 * 1024 * 1024,
}

type Server struct {
	cfg    types.Config
	logger *slog.Logger
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	docs, bindings, err := buildStore(ctx, s.cfg)
	if err != nil {
		log.Fatal("error to initialize document store: ", err)
		return
	}

	orchestrator := answer.NewOrchestrator(
		docs,
		buildTiers(s.cfg, docs, bindings),
		s.cfg.TopK,
		s.cfg.TierTimeout,
	)

	var (
		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler()
		uploadHandler = api.NewUploadHandler(docs)
		askHandler    = api.NewAskHandler(orchestrator)
		debugHandler  = api.NewDebugHandler(docs)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/upload", uploadHandler.HandleUpload)
	apiv1.Post("/ask", askHandler.HandleAsk)
	app.Get("/api/_debug/:docId", debugHandler.HandleLookup)

	// Raw PDFs for the viewer, file backend only.
	if fs, ok := docs.(*store.FileStore); ok {
		app.Static("/uploads", fs.Dir())
	}

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}

func buildStore(ctx context.Context, cfg types.Config) (store.DocStorer, index.BindingStore, error) {
	if cfg.StoreBackend == "postgres" {
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.PGHost, cfg.PGPort, cfg.PGUser, cfg.PGPass, cfg.PGDBName)
		pg, err := store.NewPostgresStore(ctx, connStr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to Postgres: %w", err)
		}
		if err := pg.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("create tables: %w", err)
		}
		return pg, pg, nil
	}

	fs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	bindings, err := index.NewFileBindings(filepath.Join(cfg.DataDir, "vector-stores.json"))
	if err != nil {
		return nil, nil, err
	}
	return fs, bindings, nil
}

// buildTiers assembles the answering chain in quality order. The orchestrator
// appends the extractive tail itself, so an unconfigured deployment still
// answers.
func buildTiers(cfg types.Config, docs store.DocStorer, bindings index.BindingStore) []answer.Tier {
	var tiers []answer.Tier

	if cfg.UseFileSearch && cfg.OpenAIKey != "" {
		indexer := index.NewOpenAIIndexer(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel)
		registry := index.NewRegistry(bindings, indexer)
		tiers = append(tiers, answer.SearchTier(docs, registry))
	}

	if cfg.OpenAIKey != "" {
		completer := model.NewOpenAICompleter(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel)
		tiers = append(tiers, answer.CompletionTier(agent.New(completer, cfg.PageCharBudget)))
	}

	return tiers
}
