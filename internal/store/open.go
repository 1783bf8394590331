package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
}

// Open connects the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires a database URL")
		}
		return ConnectPostgres(ctx, opts.DatabaseURL)
	case BackendMongo:
		if opts.MongoURI == "" {
			return nil, fmt.Errorf("mongo backend requires a URI")
		}
		database := opts.MongoDatabase
		if database == "" {
			database = "taskmatch"
		}
		return ConnectMongo(ctx, opts.MongoURI, database)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
