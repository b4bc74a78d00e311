package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"studyquiz-server/logger"
	"studyquiz-server/models"
)

// SQLiteStore implements Repository on an embedded SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database file at dbPath.
func NewSQLite(ctx context.Context, dbPath string, log *logger.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between concurrent submissions
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	log.Info("Opened SQLite database", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS preferences (
		viewer_id TEXT PRIMARY KEY,
		theme TEXT NOT NULL,
		text_scale REAL NOT NULL,
		intro_seen INTEGER NOT NULL DEFAULT 0,
		stats_enabled INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS question_stats (
		viewer_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		category TEXT NOT NULL,
		excerpt TEXT NOT NULL,
		correct INTEGER NOT NULL DEFAULT 0,
		incorrect INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (viewer_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS answer_stats (
		viewer_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		option_index INTEGER NOT NULL,
		selected INTEGER NOT NULL DEFAULT 0,
		is_correct INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (viewer_id, question_id, option_index)
	);

	CREATE TABLE IF NOT EXISTS ingestion_issues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		record INTEGER NOT NULL,
		field_name TEXT,
		error_message TEXT NOT NULL,
		suggested_fix TEXT,
		logged_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, viewerID string) (models.Preferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT viewer_id, theme, text_scale, intro_seen, stats_enabled, updated_at
		FROM preferences WHERE viewer_id = ?`, viewerID)

	var p models.Preferences
	var updatedAt int64
	err := row.Scan(&p.ViewerID, &p.Theme, &p.TextScale, &p.IntroSeen, &p.StatsEnabled, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Preferences{}, ErrNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("scan preferences row: %w", err)
	}
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return p, nil
}

func (s *SQLiteStore) SavePreferences(ctx context.Context, p models.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO preferences (viewer_id, theme, text_scale, intro_seen, stats_enabled, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(viewer_id) DO UPDATE SET
		theme = excluded.theme,
		text_scale = excluded.text_scale,
		intro_seen = excluded.intro_seen,
		stats_enabled = excluded.stats_enabled,
		updated_at = excluded.updated_at`,
		p.ViewerID, p.Theme, p.TextScale, p.IntroSeen, p.StatsEnabled, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, viewerID string, a models.Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	correct, incorrect := outcomeCounts(a.AllCorrect)
	_, err = tx.ExecContext(ctx, `
	INSERT INTO question_stats (viewer_id, question_id, category, excerpt, correct, incorrect, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(viewer_id, question_id) DO UPDATE SET
		category = excluded.category,
		excerpt = excluded.excerpt,
		correct = question_stats.correct + excluded.correct,
		incorrect = question_stats.incorrect + excluded.incorrect,
		updated_at = excluded.updated_at`,
		viewerID, a.QuestionID, a.Category, a.Excerpt, correct, incorrect, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert question stats: %w", err)
	}

	for _, mark := range a.Affirmed {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO answer_stats (viewer_id, question_id, option_index, selected, is_correct)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(viewer_id, question_id, option_index) DO UPDATE SET
			selected = answer_stats.selected + 1,
			is_correct = excluded.is_correct`,
			viewerID, a.QuestionID, mark.Index, mark.Correct)
		if err != nil {
			return fmt.Errorf("upsert answer stats: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListStats(ctx context.Context, viewerID string) ([]models.QuestionStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, category, excerpt, correct, incorrect, updated_at
		FROM question_stats WHERE viewer_id = ? ORDER BY question_id`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query question stats: %w", err)
	}
	defer rows.Close()

	stats := []models.QuestionStat{}
	index := make(map[string]int)
	for rows.Next() {
		var st models.QuestionStat
		var updatedAt int64
		if err := rows.Scan(&st.QuestionID, &st.Category, &st.Excerpt, &st.Correct, &st.Incorrect, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan question stats row: %w", err)
		}
		st.UpdatedAt = time.Unix(updatedAt, 0)
		index[st.QuestionID] = len(stats)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question stats: %w", err)
	}
	rows.Close() // release the only connection before the second query

	arows, err := s.db.QueryContext(ctx, `
		SELECT question_id, option_index, selected, is_correct
		FROM answer_stats WHERE viewer_id = ? ORDER BY question_id, option_index`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query answer stats: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var qid string
		var as models.AnswerStat
		if err := arows.Scan(&qid, &as.Index, &as.Selected, &as.Correct); err != nil {
			return nil, fmt.Errorf("scan answer stats row: %w", err)
		}
		if i, ok := index[qid]; ok {
			stats[i].AnswerStats = append(stats[i].AnswerStats, as)
		}
	}
	return stats, arows.Err()
}

func (s *SQLiteStore) ResetStats(ctx context.Context, viewerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM answer_stats WHERE viewer_id = ?`, viewerID); err != nil {
		return fmt.Errorf("delete answer stats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM question_stats WHERE viewer_id = ?`, viewerID); err != nil {
		return fmt.Errorf("delete question stats: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ReplaceIssues(ctx context.Context, issues []models.IngestionIssue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM ingestion_issues`); err != nil {
		return fmt.Errorf("clear ingestion issues: %w", err)
	}
	now := time.Now().Unix()
	for _, is := range issues {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ingestion_issues (file_path, record, field_name, error_message, suggested_fix, logged_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			is.FilePath, is.Record, is.FieldName, is.ErrorMessage, is.SuggestedFix, now)
		if err != nil {
			return fmt.Errorf("insert ingestion issue: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListIssues(ctx context.Context) ([]models.IngestionIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, record, COALESCE(field_name, ''), error_message, COALESCE(suggested_fix, '')
		FROM ingestion_issues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ingestion issues: %w", err)
	}
	defer rows.Close()
	issues := []models.IngestionIssue{}
	for rows.Next() {
		var is models.IngestionIssue
		if err := rows.Scan(&is.FilePath, &is.Record, &is.FieldName, &is.ErrorMessage, &is.SuggestedFix); err != nil {
			return nil, fmt.Errorf("scan ingestion issue row: %w", err)
		}
		issues = append(issues, is)
	}
	return issues, rows.Err()
}

func outcomeCounts(allCorrect bool) (correct, incorrect int) {
	if allCorrect {
		return 1, 0
	}
	return 0, 1
}
