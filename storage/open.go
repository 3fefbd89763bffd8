package storage

import (
	"context"
	"fmt"
	"strings"
)

// Open selects a backend from the URL scheme: postgres:// or postgresql://
// for Postgres, sqlite://path or a file: URI for SQLite. An empty URL returns
// (nil, nil) and telemetry is not persisted.
func Open(ctx context.Context, databaseURL string) (EventStore, error) {
	switch {
	case databaseURL == "":
		return nil, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := NewStore(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return s, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return openSQLite(strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"):
		return openSQLite(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(databaseURL))
	}
}

func openSQLite(path string) (EventStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite url has no path")
	}
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[:i+3] + "..."
	}
	if len(url) > 8 {
		return url[:8] + "..."
	}
	return url
}
