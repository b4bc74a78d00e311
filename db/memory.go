package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"studyquiz-server/models"
)

// MemoryStore implements Repository in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	prefs  map[string]models.Preferences
	stats  map[string]map[string]*models.QuestionStat
	issues []models.IngestionIssue
	now    func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]models.Preferences),
		stats: make(map[string]map[string]*models.QuestionStat),
		now:   time.Now,
	}
}

func (m *MemoryStore) GetPreferences(_ context.Context, viewerID string) (models.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[viewerID]
	if !ok {
		return models.Preferences{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) SavePreferences(_ context.Context, prefs models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefs.UpdatedAt = m.now()
	m.prefs[prefs.ViewerID] = prefs
	return nil
}

func (m *MemoryStore) RecordAttempt(_ context.Context, viewerID string, a models.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byQuestion, ok := m.stats[viewerID]
	if !ok {
		byQuestion = make(map[string]*models.QuestionStat)
		m.stats[viewerID] = byQuestion
	}
	st, ok := byQuestion[a.QuestionID]
	if !ok {
		st = &models.QuestionStat{QuestionID: a.QuestionID}
		byQuestion[a.QuestionID] = st
	}
	st.Category = a.Category
	st.Excerpt = a.Excerpt
	st.UpdatedAt = m.now()
	if a.AllCorrect {
		st.Correct++
	} else {
		st.Incorrect++
	}
	for _, mark := range a.Affirmed {
		found := false
		for i := range st.AnswerStats {
			if st.AnswerStats[i].Index == mark.Index {
				st.AnswerStats[i].Selected++
				st.AnswerStats[i].Correct = mark.Correct
				found = true
				break
			}
		}
		if !found {
			st.AnswerStats = append(st.AnswerStats, models.AnswerStat{Index: mark.Index, Selected: 1, Correct: mark.Correct})
		}
	}
	sort.Slice(st.AnswerStats, func(i, j int) bool { return st.AnswerStats[i].Index < st.AnswerStats[j].Index })
	return nil
}

func (m *MemoryStore) ListStats(_ context.Context, viewerID string) ([]models.QuestionStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.QuestionStat, 0, len(m.stats[viewerID]))
	for _, st := range m.stats[viewerID] {
		c := *st
		c.AnswerStats = append([]models.AnswerStat(nil), st.AnswerStats...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m *MemoryStore) ResetStats(_ context.Context, viewerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, viewerID)
	return nil
}

func (m *MemoryStore) ReplaceIssues(_ context.Context, issues []models.IngestionIssue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = append([]models.IngestionIssue(nil), issues...)
	return nil
}

func (m *MemoryStore) ListIssues(_ context.Context) ([]models.IngestionIssue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.IngestionIssue{}, m.issues...), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
