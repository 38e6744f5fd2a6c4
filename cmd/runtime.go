package cmd

import (
	"fmt"
	"log"

	"github.com/kozaktomas/face-registry/internal/blob"
	"github.com/kozaktomas/face-registry/internal/cache"
	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/database/mariadb"
	"github.com/kozaktomas/face-registry/internal/database/mock"
	"github.com/kozaktomas/face-registry/internal/database/postgres"
	"github.com/kozaktomas/face-registry/internal/engine"
	"github.com/kozaktomas/face-registry/internal/engine/local"
	"github.com/kozaktomas/face-registry/internal/quality"
	"github.com/kozaktomas/face-registry/internal/recognition"
)

// runtime holds the wired service stack for a command invocation.
// Everything is injected from config; commands never construct
// services directly.
type runtime struct {
	config         *config.Config
	repo           database.Repository
	enrollment     *recognition.EnrollmentService
	identification *recognition.IdentificationService

	closers []func() error
}

// newRuntime builds the engine, identity store, cache and blob store
// selected by the environment and wires the orchestration services on
// top of them.
func newRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{config: cfg}

	eng, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		return nil, err
	}
	rt.repo = repo
	if closeRepo != nil {
		rt.closers = append(rt.closers, closeRepo)
	}

	resultCache, err := buildCache(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, resultCache.Close)

	blobs, err := blob.NewFileStore(cfg.Blob.Dir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	gate := quality.NewGate(cfg.Quality)
	opts := recognition.Options{
		DuplicateThreshold: cfg.Recognition.DuplicateThreshold,
		MatchThreshold:     cfg.Recognition.MatchThreshold,
		MaxMatches:         cfg.Recognition.MaxMatches,
		CacheTTL:           cfg.Cache.TTL,
		RequireLiveness:    cfg.Recognition.RequireLiveness,
	}

	rt.enrollment = recognition.NewEnrollmentService(eng, blobs, repo, gate, opts)
	rt.identification = recognition.NewIdentificationService(eng, repo, resultCache, opts)
	return rt, nil
}

// Close releases pools and clients in reverse construction order.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			log.Printf("warning: failed to close resource: %v", err)
		}
	}
	rt.closers = nil
}

func buildEngine(cfg *config.Config) (engine.Engine, error) {
	switch cfg.Engine.Provider {
	case "", "local":
		eng, err := local.New(cfg.Engine.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local engine: %w", err)
		}
		return eng, nil
	case "remote":
		if cfg.Engine.URL == "" {
			return nil, fmt.Errorf("ENGINE_URL is required for the remote engine")
		}
		return engine.NewRemote(cfg.Engine.URL, cfg.Engine.Collection), nil
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Engine.Provider)
	}
}

func buildRepository(cfg *config.Config) (database.Repository, func() error, error) {
	switch cfg.Database.Driver {
	case "", "memory":
		return mock.NewMockRepository(), nil, nil
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		repo, err := postgres.Open(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open PostgreSQL store: %w", err)
		}
		return repo, repo.Close, nil
	case "mariadb":
		if cfg.Database.URL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the mariadb driver")
		}
		repo, err := mariadb.Open(cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open MariaDB store: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildCache(cfg *config.Config) (cache.ResultCache, error) {
	if cfg.Cache.RedisURL != "" {
		c, err := cache.NewRedis(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return c, nil
	}
	return cache.NewMemory(cfg.Cache.Capacity, cfg.Cache.TTL), nil
}
