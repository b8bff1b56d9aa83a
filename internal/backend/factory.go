package backend

import (
	"context"
	"fmt"

	"financeflow/internal/auth"
	"financeflow/internal/log"
	"financeflow/internal/storage"
	"financeflow/internal/store/memory"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLite(config)
	case Memory:
		return f.createMemory()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	version, _, err := storage.SchemaVersion(config.SQLiteDBPath)
	if err != nil {
		f.logger.Warn("Could not read schema version", log.FieldError, err)
	}
	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", version)

	return &Result{Backend: repo, Cleanup: repo.Close}, nil
}

// memoryBackend keeps ledgers and accounts in process memory.
type memoryBackend struct {
	*memory.Store
	*auth.MemoryUsers
}

func (memoryBackend) Ping(context.Context) error { return nil }

func (f *DefaultFactory) createMemory() (*Result, error) {
	f.logger.Info("Initialized memory backend")
	return &Result{
		Backend: memoryBackend{Store: memory.New(), MemoryUsers: auth.NewMemoryUsers()},
	}, nil
}
