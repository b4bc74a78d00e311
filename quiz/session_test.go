package quiz

import (
	"errors"
	"math/rand"
	"testing"

	"studyquiz-server/models"
)

// question builds a four option question with the given options correct.
func question(id, category string, correct ...int) models.Question {
	q := models.Question{ID: id, QuizID: id, Category: category, Prompt: "Prompt " + id}
	for i := 0; i < 4; i++ {
		q.Options = append(q.Options, models.Option{Text: "option"})
	}
	for _, c := range correct {
		q.Options[c].IsCorrect = true
	}
	return q
}

func newTestSession(t *testing.T, questions ...models.Question) *Session {
	t.Helper()
	return NewSession(NewStore(questions, ""), nil, rand.New(rand.NewSource(1)))
}

func judge(t *testing.T, s *Session, position int, values ...Judgment) {
	t.Helper()
	for i, v := range values {
		if v == Unset {
			continue
		}
		if _, err := s.SetJudgment(position, i, v); err != nil {
			t.Fatalf("SetJudgment(%d, %d): %v", position, i, err)
		}
	}
}

func checkInvariants(t *testing.T, s *Session) {
	t.Helper()
	c := s.Counters()
	// correct submissions are counted every time, so Correct is not bounded by Answered
	if c.Correct < 0 || !(c.Answered <= s.ScoredCount() && s.ScoredCount() <= s.Len()) {
		t.Fatalf("Counter invariant broken: correct=%d answered=%d scored=%d total=%d",
			c.Correct, c.Answered, s.ScoredCount(), s.Len())
	}
	if c.Answered != s.ScoredCount() {
		t.Fatalf("Expected answered == scored, got %d != %d", c.Answered, s.ScoredCount())
	}
	if !s.Empty() && (s.Position() < 0 || s.Position() >= s.Len()) {
		t.Fatalf("Position %d out of range for %d questions", s.Position(), s.Len())
	}
}

func TestSetJudgmentToggles(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 1))

	for _, v := range []Judgment{Affirmed, Rejected, Unset} {
		for i := 0; i < 5; i++ {
			if _, err := s.SetJudgment(0, 2, v); err != nil {
				t.Fatalf("SetJudgment: %v", err)
			}
			got := s.Judgments(0)[2]
			want := v
			if i%2 == 1 {
				want = Unset
			}
			if got != want {
				t.Fatalf("value %v, click %d: expected %v, got %v", v, i+1, want, got)
			}
		}
		// leave the option cleared before the next value
		if s.Judgments(0)[2] != Unset {
			if _, err := s.SetJudgment(0, 2, v); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestSetJudgmentSwitchesDirectly(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 1))
	judge(t, s, 0, Affirmed)
	if _, err := s.SetJudgment(0, 0, Rejected); err != nil {
		t.Fatal(err)
	}
	if got := s.Judgments(0)[0]; got != Rejected {
		t.Fatalf("Expected affirm to switch straight to reject, got %v", got)
	}
	if c := s.Counters(); c.Answered != 0 || c.Correct != 0 || c.WrongStreak != 0 {
		t.Fatalf("Judgments must not touch counters, got %+v", c)
	}
}

func TestSetJudgmentRejectsBadIndices(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 1))
	if _, err := s.SetJudgment(1, 0, Affirmed); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("Expected ErrPositionOutOfRange, got %v", err)
	}
	if _, err := s.SetJudgment(0, 4, Affirmed); !errors.Is(err, ErrOptionOutOfRange) {
		t.Errorf("Expected ErrOptionOutOfRange, got %v", err)
	}
	if _, err := s.SetJudgment(0, -1, Affirmed); !errors.Is(err, ErrOptionOutOfRange) {
		t.Errorf("Expected ErrOptionOutOfRange, got %v", err)
	}
	if _, err := s.SetJudgment(0, 0, Judgment(7)); !errors.Is(err, ErrUnknownJudgment) {
		t.Errorf("Expected ErrUnknownJudgment, got %v", err)
	}
	for _, j := range s.Judgments(0) {
		if j != Unset {
			t.Fatal("Rejected calls must not record anything")
		}
	}
}

func TestSubmitScenario(t *testing.T) {
	// option 2 and option 4 (indices 1 and 3) correct on both questions
	s := newTestSession(t, question("q1", "A", 1, 3), question("q2", "A", 1, 3))

	c := s.Submit(0)
	if c.Kind != ChangeNotAnswered || c.Outcome.Answered {
		t.Fatalf("Expected untouched question to be refused, got %v", c.Kind)
	}
	if got := s.Counters(); got != (Counters{Total: 2}) {
		t.Fatalf("Refused submission mutated counters: %+v", got)
	}
	if s.Scored(0) {
		t.Fatal("Refused submission must not mark the position scored")
	}

	judge(t, s, 0, Rejected, Affirmed, Rejected, Affirmed)
	c = s.Submit(0)
	if c.Kind != ChangeSubmitted || !c.Outcome.AllCorrect {
		t.Fatalf("Expected all correct submission, got %+v", c.Outcome)
	}
	if got := s.Counters(); got.Correct != 1 || got.Answered != 1 || got.WrongStreak != 0 {
		t.Fatalf("Unexpected counters after correct submit: %+v", got)
	}
	if c.Advance == nil || c.Advance.Position != 0 {
		t.Fatal("Expected an advance ticket for the correct submission")
	}
	checkInvariants(t, s)

	judge(t, s, 1, Affirmed, Affirmed, Rejected, Affirmed)
	c = s.Submit(1)
	if c.Outcome.AllCorrect {
		t.Fatal("Expected incorrect submission")
	}
	want := []bool{false, true, true, true}
	for i, m := range c.Outcome.Matches {
		if m != want[i] {
			t.Errorf("option %d: expected match=%v, got %v", i, want[i], m)
		}
	}
	if got := s.Counters(); got.WrongStreak != 1 || got.Answered != 2 || got.Correct != 1 {
		t.Fatalf("Unexpected counters after wrong submit: %+v", got)
	}
	if c.Advance != nil {
		t.Error("Incorrect submissions must not schedule an advance")
	}
	checkInvariants(t, s)
}

func TestUnsetOptionIsMismatch(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 1))
	judge(t, s, 0, Unset, Affirmed)
	c := s.Submit(0)
	if !c.Outcome.Answered || c.Outcome.AllCorrect {
		t.Fatalf("Expected answered but not all correct, got %+v", c.Outcome)
	}
	if c.Outcome.Matches[0] || !c.Outcome.Matches[1] {
		t.Fatalf("Unexpected matches %v", c.Outcome.Matches)
	}
}

func TestResubmissionCountsAnsweredOnce(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0))
	judge(t, s, 0, Rejected, Rejected, Rejected, Rejected)

	for i := 1; i <= 3; i++ {
		s.Submit(0)
		if got := s.Counters(); got.Answered != 1 || got.WrongStreak != i || got.Correct != 0 {
			t.Fatalf("submit %d: unexpected counters %+v", i, got)
		}
		checkInvariants(t, s)
	}

	// switch option 1 from reject to affirm
	if _, err := s.SetJudgment(0, 0, Affirmed); err != nil {
		t.Fatal(err)
	}
	c := s.Submit(0)
	if !c.Outcome.AllCorrect {
		t.Fatalf("Expected correct resubmission, judgments %v", s.Judgments(0))
	}
	if got := s.Counters(); got.Correct != 1 || got.WrongStreak != 0 || got.Answered != 1 {
		t.Fatalf("Unexpected counters %+v", got)
	}

	s.Submit(0)
	if got := s.Counters(); got.Correct != 2 || got.Answered != 1 {
		t.Fatalf("Expected every correct submission to count, got %+v", got)
	}

	// back to a wrong answer: the streak grows, earlier correct counts stay
	if _, err := s.SetJudgment(0, 0, Rejected); err != nil {
		t.Fatal(err)
	}
	s.Submit(0)
	if got := s.Counters(); got.Correct != 2 || got.WrongStreak != 1 || got.Answered != 1 {
		t.Fatalf("Expected correct count to be kept, got %+v", got)
	}
	checkInvariants(t, s)
}

func TestCorrectResubmissionCountsAgain(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 1, 3))
	judge(t, s, 0, Rejected, Affirmed, Rejected, Affirmed)

	s.Submit(0)
	s.Submit(0)
	if got := s.Counters(); got.Correct != 2 || got.Answered != 1 || got.WrongStreak != 0 {
		t.Fatalf("Unexpected counters after two correct submits %+v", got)
	}

	// toggles option 0 from Rejected to Affirmed, which is wrong
	if _, err := s.SetJudgment(0, 0, Affirmed); err != nil {
		t.Fatal(err)
	}
	s.Submit(0)
	if got := s.Counters(); got.Correct != 2 || got.Answered != 1 || got.WrongStreak != 1 {
		t.Fatalf("Expected the correct count never to drop, got %+v", got)
	}
}

func TestNavigation(t *testing.T) {
	s := newTestSession(t, question("q1", "A"), question("q2", "A"), question("q3", "A"))

	if c := s.Previous(); c.Kind != ChangeNone || s.Position() != 0 {
		t.Fatal("Previous at 0 must be a no-op")
	}
	gen := s.Generation()
	s.Next()
	s.Next()
	if s.Position() != 2 {
		t.Fatalf("Expected position 2, got %d", s.Position())
	}
	if s.Generation() == gen {
		t.Error("Navigation must change the generation")
	}
	if c := s.Next(); c.Kind != ChangeNavigated || s.Position() != 0 || c.From != 2 {
		t.Fatalf("Expected wrap to 0 from 2, got position %d", s.Position())
	}
	s.Skip()
	if s.Position() != 1 {
		t.Fatalf("Expected skip to move to 1, got %d", s.Position())
	}
	s.Previous()
	if s.Position() != 0 {
		t.Fatalf("Expected previous to move to 0, got %d", s.Position())
	}
	if c := s.JumpTo(5); c.Kind != ChangeNone {
		t.Error("Out of range jump must be ignored")
	}
	if c := s.JumpTo(-1); c.Kind != ChangeNone {
		t.Error("Negative jump must be ignored")
	}
	target := s.Working()[2].ID
	s.JumpToQuestion(target)
	if s.Position() != 2 {
		t.Fatalf("Expected jump to question %s at 2, got %d", target, s.Position())
	}
}

func TestNavigationKeepsJudgmentsAndOutcome(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "A", 0))
	judge(t, s, 0, Affirmed, Rejected)
	s.Submit(0)
	before := s.View()

	s.Next()
	s.Previous()
	after := s.View()

	if !after.Scored || after.Outcome == nil {
		t.Fatal("Expected scored outcome to be redisplayed")
	}
	for i := range before.Judgments {
		if before.Judgments[i] != after.Judgments[i] {
			t.Fatalf("Judgments changed across navigation: %v -> %v", before.Judgments, after.Judgments)
		}
	}
	if after.AdvancePending {
		t.Error("Navigation must clear the pending advance")
	}
}

func TestEmptySelection(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "B", 0))
	judge(t, s, 0, Affirmed)
	s.Submit(0)

	s.DeselectAll()
	if !s.Empty() || s.Len() != 0 {
		t.Fatalf("Expected empty working set, got %d", s.Len())
	}
	for _, c := range []Change{s.Next(), s.Previous(), s.Skip(), s.Submit(0), s.JumpTo(0)} {
		if c.Kind != ChangeNone {
			t.Errorf("Expected no-op on empty set, got %v", c.Kind)
		}
	}
	v := s.View()
	if !v.Empty || v.Question != nil {
		t.Fatal("Expected empty view without a question")
	}
	if _, ok := s.Current(); ok {
		t.Fatal("Expected no current question")
	}
	if v.Counters != (Counters{}) {
		t.Fatalf("Expected zero counters, got %+v", v.Counters)
	}
}

func TestFilterChangeResetsEverything(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "A", 0), question("q3", "B", 0))
	judge(t, s, 0, Rejected)
	s.Submit(0)
	s.Next()

	s.ToggleCategory("B")
	if got := s.Selected(); len(got) != 1 || got[0] != "A" {
		t.Fatalf("Expected only A selected, got %v", got)
	}
	if s.Position() != 0 || s.ScoredCount() != 0 || s.Counters() != (Counters{Total: 2}) {
		t.Fatalf("Expected reset state, got position=%d counters=%+v", s.Position(), s.Counters())
	}
	for i := 0; i < s.Len(); i++ {
		for _, j := range s.Judgments(i) {
			if j != Unset {
				t.Fatal("Judgments must be cleared on filter change")
			}
		}
	}
	for _, q := range s.Working() {
		if q.Category != "A" {
			t.Fatalf("Unexpected category %q in working set", q.Category)
		}
	}

	s.SetCategories([]string{"B", "unknown", "B"})
	if got := s.Selected(); len(got) != 1 || got[0] != "B" {
		t.Fatalf("Expected unknown and duplicate labels dropped, got %v", got)
	}
	s.SelectAll()
	if s.Len() != 3 {
		t.Fatalf("Expected all questions, got %d", s.Len())
	}
}

func TestReshuffleResets(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "A", 0))
	judge(t, s, 1, Affirmed)
	s.Submit(1)
	s.Next()
	if c := s.Reshuffle(); c.Kind != ChangeReset {
		t.Fatalf("Expected reset change, got %v", c.Kind)
	}
	if s.Position() != 0 || s.ScoredCount() != 0 || s.Counters().Correct != 0 {
		t.Fatal("Expected reshuffle to recreate the session state")
	}
}

func TestApplyAdvance(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "A", 0))
	judge(t, s, 0, Affirmed, Rejected, Rejected, Rejected)
	c := s.Submit(0)
	if c.Advance == nil {
		t.Fatal("Expected advance ticket")
	}
	ticket := *c.Advance

	if got := s.ApplyAdvance(ticket); got.Kind != ChangeNavigated || s.Position() != 1 {
		t.Fatalf("Expected advance to position 1, got %d", s.Position())
	}
	if got := s.ApplyAdvance(ticket); got.Kind != ChangeNone || s.Position() != 1 {
		t.Fatal("A ticket must apply at most once")
	}
}

func TestApplyAdvanceIgnoresStaleTickets(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "A", 0), question("q3", "A", 0))
	judge(t, s, 0, Affirmed, Rejected, Rejected, Rejected)
	ticket := *s.Submit(0).Advance

	// the viewer navigates away before the delayed advance fires
	s.Next()
	s.Previous()
	if got := s.ApplyAdvance(ticket); got.Kind != ChangeNone || s.Position() != 0 {
		t.Fatalf("Stale ticket moved the session to %d", s.Position())
	}

	ticket = *s.Submit(0).Advance
	s.Reshuffle()
	if got := s.ApplyAdvance(ticket); got.Kind != ChangeNone {
		t.Fatal("Ticket from a previous working set must be ignored")
	}
}

func TestObserversSeeTransitions(t *testing.T) {
	s := newTestSession(t, question("q1", "A", 0), question("q2", "A", 0))
	var kinds []ChangeKind
	s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	s.Previous() // no-op, not reported
	s.Submit(0)
	judge(t, s, 0, Affirmed)
	s.Submit(0)
	s.Next()
	s.Reshuffle()

	want := []ChangeKind{ChangeNotAnswered, ChangeJudgment, ChangeSubmitted, ChangeNavigated, ChangeReset}
	if len(kinds) != len(want) {
		t.Fatalf("Expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, kinds)
		}
	}
}

func TestRandomActionsKeepInvariants(t *testing.T) {
	s := newTestSession(t,
		question("q1", "A", 0), question("q2", "A", 1, 2), question("q3", "B"), question("q4", "B", 3))
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		switch r.Intn(9) {
		case 0, 1, 2:
			if !s.Empty() {
				_, _ = s.SetJudgment(r.Intn(s.Len()), r.Intn(4), Judgment(r.Intn(3)))
			}
		case 3, 4:
			if !s.Empty() {
				before := s.Counters()
				c := s.Submit(r.Intn(s.Len()))
				after := s.Counters()
				switch {
				case c.Kind == ChangeNotAnswered && before != after:
					t.Fatal("Refused submission changed counters")
				case c.Kind == ChangeSubmitted && c.Outcome.AllCorrect && after.WrongStreak != 0:
					t.Fatal("Correct submission must reset the streak")
				case c.Kind == ChangeSubmitted && !c.Outcome.AllCorrect && after.WrongStreak != before.WrongStreak+1:
					t.Fatal("Wrong submission must grow the streak by one")
				}
			}
		case 5:
			s.Next()
		case 6:
			s.Previous()
		case 7:
			if tk, ok := s.PendingAdvance(); ok {
				s.ApplyAdvance(tk)
			}
		case 8:
			if r.Intn(10) == 0 {
				s.ToggleCategory([]string{"A", "B"}[r.Intn(2)])
			}
		}
		checkInvariants(t, s)
	}
}
