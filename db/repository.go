// Package db persists viewer preferences, answer statistics and bank
// ingestion issues.
package db

import (
	"context"
	"errors"
	"fmt"

	"studyquiz-server/config"
	"studyquiz-server/logger"
	"studyquiz-server/models"
)

var ErrNotFound = errors.New("not found")

// PreferenceRepository stores the cosmetic choices of each viewer.
type PreferenceRepository interface {
	// GetPreferences returns ErrNotFound for a viewer that never saved anything.
	GetPreferences(ctx context.Context, viewerID string) (models.Preferences, error)
	SavePreferences(ctx context.Context, prefs models.Preferences) error
}

// StatsRepository accumulates per-question answer statistics of each viewer.
type StatsRepository interface {
	RecordAttempt(ctx context.Context, viewerID string, attempt models.Attempt) error
	ListStats(ctx context.Context, viewerID string) ([]models.QuestionStat, error)
	ResetStats(ctx context.Context, viewerID string) error
}

// IssueRepository keeps the malformed records reported by the last bank load.
type IssueRepository interface {
	ReplaceIssues(ctx context.Context, issues []models.IngestionIssue) error
	ListIssues(ctx context.Context) ([]models.IngestionIssue, error)
}

// Repository is the full storage backend.
type Repository interface {
	PreferenceRepository
	StatsRepository
	IssueRepository

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the backend named by cfg.Driver and creates its schema.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Repository, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		log.Warn("Using in-memory storage, preferences and statistics are lost on restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
