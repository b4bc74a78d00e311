package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"studyquiz-server/models"
	"studyquiz-server/utils"
)

var (
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrOptionOutOfRange   = errors.New("option out of range")
)

// Counters are the running totals shown next to the question.
type Counters struct {
	Correct     int `json:"correct"`
	Answered    int `json:"answered"`
	WrongStreak int `json:"wrong_streak"`
	Total       int `json:"total"`
}

// Session is the mutable state of one quiz run over a Store.
// It is not safe for concurrent use; callers serialize access.
type Session struct {
	store    *Store
	selected []string
	rng      *rand.Rand

	working   []models.Question
	position  int
	judgments map[int][]Judgment
	outcomes  map[int]Outcome // last scored outcome per position
	scored    map[int]struct{}
	pending   *AdvanceTicket

	correctCount  int
	answeredCount int
	wrongStreak   int

	// generation changes on every reset and navigation
	generation uint64
	observers  []Observer
}

// NewSession starts a session over the selected categories. A nil selection
// selects every category of the store. A nil r seeds from the clock.
func NewSession(store *Store, selected []string, r *rand.Rand) *Session {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if selected == nil {
		selected = store.Categories()
	}
	s := &Session{store: store, rng: r}
	s.selected = s.normalize(selected)
	s.reset()
	return s
}

// Subscribe registers an observer for all later transitions.
func (s *Session) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Session) notify(c Change) Change {
	if c.Kind == ChangeNone {
		return c
	}
	for _, o := range s.observers {
		o(c)
	}
	return c
}

func (s *Session) normalize(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if s.store.HasCategory(l) && !utils.ContainsString(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// reset replaces every piece of per-run state; nothing survives a filter change.
func (s *Session) reset() {
	s.working = Filter(s.store.Questions(), s.selected, s.rng)
	s.position = 0
	s.judgments = make(map[int][]Judgment)
	s.outcomes = make(map[int]Outcome)
	s.scored = make(map[int]struct{})
	s.pending = nil
	s.correctCount = 0
	s.answeredCount = 0
	s.wrongStreak = 0
	s.generation++
}

func (s *Session) resetChange() Change {
	s.reset()
	return s.notify(Change{Kind: ChangeReset})
}

// SetCategories replaces the selection. Unknown labels are dropped.
func (s *Session) SetCategories(labels []string) Change {
	s.selected = s.normalize(labels)
	return s.resetChange()
}

// ToggleCategory adds or removes a single label from the selection.
func (s *Session) ToggleCategory(label string) Change {
	next := make([]string, 0, len(s.selected)+1)
	found := false
	for _, c := range s.selected {
		if c == label {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		next = append(next, label)
	}
	return s.SetCategories(next)
}

func (s *Session) SelectAll() Change   { return s.SetCategories(s.store.Categories()) }
func (s *Session) DeselectAll() Change { return s.SetCategories(nil) }

// Reshuffle rebuilds the session over the same selection in a new order.
func (s *Session) Reshuffle() Change {
	return s.resetChange()
}

func (s *Session) Selected() []string {
	return append([]string(nil), s.selected...)
}

func (s *Session) Len() int           { return len(s.working) }
func (s *Session) Empty() bool        { return len(s.working) == 0 }
func (s *Session) Position() int      { return s.position }
func (s *Session) Generation() uint64 { return s.generation }

func (s *Session) valid(position int) bool {
	return position >= 0 && position < len(s.working)
}

// Current returns the question at the current position.
func (s *Session) Current() (models.Question, bool) {
	if s.Empty() {
		return models.Question{}, false
	}
	return s.working[s.position], true
}

// Working returns a copy of the working set in play order.
func (s *Session) Working() []models.Question {
	return append([]models.Question(nil), s.working...)
}

// Judgments returns the recorded judgments for position, one per option.
func (s *Session) Judgments(position int) []Judgment {
	if !s.valid(position) {
		return nil
	}
	out := make([]Judgment, len(s.working[position].Options))
	copy(out, s.judgments[position])
	return out
}

// Outcome returns the last scored outcome of position, if it was ever scored.
func (s *Session) Outcome(position int) (Outcome, bool) {
	o, ok := s.outcomes[position]
	return o, ok
}

func (s *Session) Scored(position int) bool {
	_, ok := s.scored[position]
	return ok
}

func (s *Session) ScoredCount() int { return len(s.scored) }

func (s *Session) Counters() Counters {
	return Counters{
		Correct:     s.correctCount,
		Answered:    s.answeredCount,
		WrongStreak: s.wrongStreak,
		Total:       len(s.working),
	}
}

// PendingAdvance returns the ticket of a not yet applied auto-advance.
func (s *Session) PendingAdvance() (AdvanceTicket, bool) {
	if s.pending == nil {
		return AdvanceTicket{}, false
	}
	return *s.pending, true
}

// SetJudgment records value on one option. Repeating the stored value clears it to Unset.
// Counters are only touched by Submit.
func (s *Session) SetJudgment(position, option int, value Judgment) (Change, error) {
	if !s.valid(position) {
		return Change{Kind: ChangeNone}, fmt.Errorf("%w: %d", ErrPositionOutOfRange, position)
	}
	q := s.working[position]
	if option < 0 || option >= len(q.Options) {
		return Change{Kind: ChangeNone}, fmt.Errorf("%w: %d", ErrOptionOutOfRange, option)
	}
	if value < Unset || value > Rejected {
		return Change{Kind: ChangeNone}, fmt.Errorf("%w: %d", ErrUnknownJudgment, int(value))
	}

	js := s.Judgments(position)
	if js[option] == value {
		js[option] = Unset
	} else {
		js[option] = value
	}
	s.judgments[position] = js

	return s.notify(Change{
		Kind:      ChangeJudgment,
		Position:  position,
		From:      position,
		Question:  &q,
		Judgments: append([]Judgment(nil), js...),
	}), nil
}

// Submit scores the judgments recorded for position.
//
// A submission without any non-Unset judgment is refused and mutates nothing.
// answeredCount grows once per position; wrongStreak is updated on every
// accepted submission, and so is correctCount: every all-correct submission
// counts, including resubmissions, so correctCount may exceed answeredCount.
func (s *Session) Submit(position int) Change {
	if !s.valid(position) {
		return Change{Kind: ChangeNone}
	}
	q := s.working[position]
	js := s.Judgments(position)
	out := Score(q, js)

	c := Change{
		Position:  position,
		From:      position,
		Question:  &q,
		Judgments: js,
		Outcome:   &out,
	}
	if !out.Answered {
		c.Kind = ChangeNotAnswered
		return s.notify(c)
	}

	s.judgments[position] = append([]Judgment(nil), js...)
	if _, ok := s.scored[position]; !ok {
		s.scored[position] = struct{}{}
		s.answeredCount++
	}
	if out.AllCorrect {
		s.correctCount++
		s.wrongStreak = 0
	} else {
		s.wrongStreak++
	}
	s.outcomes[position] = out

	c.Kind = ChangeSubmitted
	if out.AllCorrect {
		t := AdvanceTicket{Position: position, Generation: s.generation}
		s.pending = &t
		c.Advance = &t
	}
	return s.notify(c)
}

func (s *Session) moveTo(position int) Change {
	from := s.position
	s.position = position
	s.pending = nil
	s.generation++
	return s.notify(Change{Kind: ChangeNavigated, Position: position, From: from})
}

// Next advances one position and wraps from the last to the first.
func (s *Session) Next() Change {
	if s.Empty() {
		return Change{Kind: ChangeNone}
	}
	if s.position < len(s.working)-1 {
		return s.moveTo(s.position + 1)
	}
	return s.moveTo(0)
}

// Skip moves on without scoring the current question.
func (s *Session) Skip() Change { return s.Next() }

// Previous steps back one position; it never wraps past the first question.
func (s *Session) Previous() Change {
	if s.Empty() || s.position == 0 {
		return Change{Kind: ChangeNone}
	}
	return s.moveTo(s.position - 1)
}

// JumpTo moves directly to position. Out of range positions are ignored.
func (s *Session) JumpTo(position int) Change {
	if !s.valid(position) || position == s.position {
		return Change{Kind: ChangeNone}
	}
	return s.moveTo(position)
}

// JumpToQuestion moves to the working set position holding the question id.
func (s *Session) JumpToQuestion(id string) Change {
	for i, q := range s.working {
		if q.ID == id {
			return s.JumpTo(i)
		}
	}
	return Change{Kind: ChangeNone}
}

// ApplyAdvance performs a delayed auto-advance if the session is still in the
// state the ticket was issued for; otherwise it does nothing.
func (s *Session) ApplyAdvance(t AdvanceTicket) Change {
	if s.pending == nil || *s.pending != t {
		return Change{Kind: ChangeNone}
	}
	if t.Generation != s.generation || t.Position != s.position {
		s.pending = nil
		return Change{Kind: ChangeNone}
	}
	return s.Next()
}
