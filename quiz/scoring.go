package quiz

import "studyquiz-server/models"

// Outcome is the scoring result of one submission.
type Outcome struct {
	Answered   bool   `json:"answered"`
	AllCorrect bool   `json:"all_correct"`
	Matches    []bool `json:"matches"` // per option, for highlighting
}

// Score compares judgments against the ground truth of q.
// A correct option matches only Affirmed, an incorrect one only Rejected;
// missing judgments count as Unset.
func Score(q models.Question, judgments []Judgment) Outcome {
	out := Outcome{
		AllCorrect: true,
		Matches:    make([]bool, len(q.Options)),
	}
	for i, opt := range q.Options {
		j := Unset
		if i < len(judgments) {
			j = judgments[i]
		}
		if j != Unset {
			out.Answered = true
		}
		match := (opt.IsCorrect && j == Affirmed) || (!opt.IsCorrect && j == Rejected)
		out.Matches[i] = match
		if !match {
			out.AllCorrect = false
		}
	}
	if len(q.Options) == 0 {
		out.AllCorrect = false
	}
	return out
}
