package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyquiz-server/logger"
	"studyquiz-server/models"
)

// PostgresStore implements Repository on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres initializes the connection pool and creates the schema.
func NewPostgres(ctx context.Context, connString string, log *logger.Logger) (*PostgresStore, error) {
	pool, err := InitDB(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := CreateSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("Successfully connected to PostgreSQL database")
	return &PostgresStore{pool: pool}, nil
}

// InitDB initializes the PostgreSQL database connection pool
func InitDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// CreateSchema sets up the tables. Statements are idempotent.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS preferences (
		viewer_id VARCHAR(64) PRIMARY KEY,
		theme VARCHAR(32) NOT NULL,
		text_scale DOUBLE PRECISION NOT NULL,
		intro_seen BOOLEAN NOT NULL DEFAULT FALSE,
		stats_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS question_stats (
		viewer_id VARCHAR(64) NOT NULL,
		question_id TEXT NOT NULL,
		category TEXT NOT NULL,
		excerpt TEXT NOT NULL,
		correct INT NOT NULL DEFAULT 0,
		incorrect INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (viewer_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS answer_stats (
		viewer_id VARCHAR(64) NOT NULL,
		question_id TEXT NOT NULL,
		option_index INT NOT NULL,
		selected INT NOT NULL DEFAULT 0,
		is_correct BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (viewer_id, question_id, option_index),
		FOREIGN KEY (viewer_id, question_id) REFERENCES question_stats(viewer_id, question_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS ingestion_issues (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		file_path TEXT NOT NULL,
		record INT NOT NULL,
		field_name TEXT,
		error_message TEXT NOT NULL,
		suggested_fix TEXT
	);
	`
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetPreferences(ctx context.Context, viewerID string) (models.Preferences, error) {
	var p models.Preferences
	err := s.pool.QueryRow(ctx, `
		SELECT viewer_id, theme, text_scale, intro_seen, stats_enabled, updated_at
		FROM preferences WHERE viewer_id = $1`, viewerID).
		Scan(&p.ViewerID, &p.Theme, &p.TextScale, &p.IntroSeen, &p.StatsEnabled, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Preferences{}, ErrNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to query preferences for %s: %w", viewerID, err)
	}
	return p, nil
}

func (s *PostgresStore) SavePreferences(ctx context.Context, p models.Preferences) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO preferences (viewer_id, theme, text_scale, intro_seen, stats_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (viewer_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			text_scale = EXCLUDED.text_scale,
			intro_seen = EXCLUDED.intro_seen,
			stats_enabled = EXCLUDED.stats_enabled,
			updated_at = NOW()
	`, p.ViewerID, p.Theme, p.TextScale, p.IntroSeen, p.StatsEnabled)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences for %s: %w", p.ViewerID, err)
	}
	return nil
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, viewerID string, a models.Attempt) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	correct, incorrect := outcomeCounts(a.AllCorrect)
	_, err = tx.Exec(ctx, `
		INSERT INTO question_stats (viewer_id, question_id, category, excerpt, correct, incorrect, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (viewer_id, question_id) DO UPDATE SET
			category = EXCLUDED.category,
			excerpt = EXCLUDED.excerpt,
			correct = question_stats.correct + EXCLUDED.correct,
			incorrect = question_stats.incorrect + EXCLUDED.incorrect,
			updated_at = NOW()
	`, viewerID, a.QuestionID, a.Category, a.Excerpt, correct, incorrect)
	if err != nil {
		return fmt.Errorf("failed to upsert question stats: %w", err)
	}

	for _, mark := range a.Affirmed {
		_, err = tx.Exec(ctx, `
			INSERT INTO answer_stats (viewer_id, question_id, option_index, selected, is_correct)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (viewer_id, question_id, option_index) DO UPDATE SET
				selected = answer_stats.selected + 1,
				is_correct = EXCLUDED.is_correct
		`, viewerID, a.QuestionID, mark.Index, mark.Correct)
		if err != nil {
			return fmt.Errorf("failed to upsert answer stats: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStats(ctx context.Context, viewerID string) ([]models.QuestionStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question_id, category, excerpt, correct, incorrect, updated_at
		FROM question_stats WHERE viewer_id = $1 ORDER BY question_id`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query question stats: %w", err)
	}
	stats := []models.QuestionStat{}
	index := make(map[string]int)
	for rows.Next() {
		var st models.QuestionStat
		if err := rows.Scan(&st.QuestionID, &st.Category, &st.Excerpt, &st.Correct, &st.Incorrect, &st.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan question stats row: %w", err)
		}
		index[st.QuestionID] = len(stats)
		stats = append(stats, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question stats: %w", err)
	}

	arows, err := s.pool.Query(ctx, `
		SELECT question_id, option_index, selected, is_correct
		FROM answer_stats WHERE viewer_id = $1 ORDER BY question_id, option_index`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answer stats: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var qid string
		var as models.AnswerStat
		if err := arows.Scan(&qid, &as.Index, &as.Selected, &as.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan answer stats row: %w", err)
		}
		if i, ok := index[qid]; ok {
			stats[i].AnswerStats = append(stats[i].AnswerStats, as)
		}
	}
	return stats, arows.Err()
}

func (s *PostgresStore) ResetStats(ctx context.Context, viewerID string) error {
	// answer_stats rows cascade
	if _, err := s.pool.Exec(ctx, `DELETE FROM question_stats WHERE viewer_id = $1`, viewerID); err != nil {
		return fmt.Errorf("failed to reset stats for %s: %w", viewerID, err)
	}
	return nil
}

func (s *PostgresStore) ReplaceIssues(ctx context.Context, issues []models.IngestionIssue) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM ingestion_issues`); err != nil {
		return fmt.Errorf("failed to clear ingestion issues: %w", err)
	}
	for _, is := range issues {
		_, err := tx.Exec(ctx, `
			INSERT INTO ingestion_issues (file_path, record, field_name, error_message, suggested_fix)
			VALUES ($1, $2, $3, $4, $5)
		`, is.FilePath, is.Record, is.FieldName, is.ErrorMessage, is.SuggestedFix)
		if err != nil {
			return fmt.Errorf("failed to insert ingestion issue: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListIssues(ctx context.Context) ([]models.IngestionIssue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_path, record, COALESCE(field_name, ''), error_message, COALESCE(suggested_fix, '')
		FROM ingestion_issues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestion issues: %w", err)
	}
	defer rows.Close()
	issues := []models.IngestionIssue{}
	for rows.Next() {
		var is models.IngestionIssue
		if err := rows.Scan(&is.FilePath, &is.Record, &is.FieldName, &is.ErrorMessage, &is.SuggestedFix); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion issue row: %w", err)
		}
		issues = append(issues, is)
	}
	return issues, rows.Err()
}
