package repository

import (
	"context"
	"fmt"
)

// Config selects and locates a backend.
type Config struct {
	Backend     string
	FilePath    string
	SQLitePath  string
	PostgresDSN string
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, opts ...Option) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case "", BackendMemoryName:
		return NewMemoryStore(opts...), nil
	case BackendFileName:
		var s *FileStore
		s, err = OpenFileStore(ctx, cfg.FilePath, opts...)
		b = s
	case BackendSQLiteName:
		var s *SQLiteStore
		s, err = OpenSQLiteStore(ctx, cfg.SQLitePath, opts...)
		b = s
	case BackendPostgresName:
		var s *PostgresStore
		s, err = OpenPostgresStore(ctx, cfg.PostgresDSN, opts...)
		b = s
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
