package quiz

import "studyquiz-server/models"

// ChangeKind names the state transition a session action produced.
type ChangeKind string

const (
	ChangeNone        ChangeKind = "none" // invalid or no-op action, state untouched
	ChangeReset       ChangeKind = "reset"
	ChangeJudgment    ChangeKind = "judgment"
	ChangeSubmitted   ChangeKind = "submitted"
	ChangeNotAnswered ChangeKind = "not_answered"
	ChangeNavigated   ChangeKind = "navigated"
)

// AdvanceTicket identifies the state a delayed auto-advance was scheduled for.
type AdvanceTicket struct {
	Position   int    `json:"position"`
	Generation uint64 `json:"generation"`
}

// Change describes what a transition did. Question and Judgments are copies.
type Change struct {
	Kind      ChangeKind       `json:"kind"`
	Position  int              `json:"position"`
	From      int              `json:"from"`
	Question  *models.Question `json:"-"`
	Judgments []Judgment       `json:"judgments,omitempty"`
	Outcome   *Outcome         `json:"outcome,omitempty"`
	Advance   *AdvanceTicket   `json:"advance,omitempty"`
}

// Changed reports whether the transition mutated the session.
// A rejected submission is reported but leaves the state as it was.
func (c Change) Changed() bool {
	return c.Kind != ChangeNone && c.Kind != ChangeNotAnswered
}

// Observer is notified after every transition other than ChangeNone.
type Observer func(Change)
