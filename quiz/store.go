package quiz

import (
	"sort"
	"strings"

	"studyquiz-server/models"
)

// DefaultFallbackCategory is substituted for questions without a category.
const DefaultFallbackCategory = "Matematika"

// Store is the immutable question list, loaded once per process.
type Store struct {
	questions  []models.Question
	categories []string
	fallback   string
}

// NewStore copies the questions and substitutes the fallback label for missing categories.
func NewStore(questions []models.Question, fallback string) *Store {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultFallbackCategory
	}
	qs := make([]models.Question, len(questions))
	for i, q := range questions {
		q.Category = categoryOf(q, fallback)
		q.Options = append([]models.Option(nil), q.Options...)
		qs[i] = q
	}
	return &Store{
		questions:  qs,
		categories: Categories(qs, fallback),
		fallback:   fallback,
	}
}

// Categories returns the sorted distinct category labels of questions.
func Categories(questions []models.Question, fallback string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range questions {
		c := categoryOf(q, fallback)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func categoryOf(q models.Question, fallback string) string {
	if c := strings.TrimSpace(q.Category); c != "" {
		return c
	}
	return fallback
}

// Questions returns a copy of the stored questions in load order.
func (s *Store) Questions() []models.Question {
	return append([]models.Question(nil), s.questions...)
}

func (s *Store) Categories() []string {
	return append([]string(nil), s.categories...)
}

func (s *Store) HasCategory(label string) bool {
	for _, c := range s.categories {
		if c == label {
			return true
		}
	}
	return false
}

func (s *Store) Len() int         { return len(s.questions) }
func (s *Store) Fallback() string { return s.fallback }
