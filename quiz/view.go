package quiz

// QuestionView is the render-side projection of a question. It carries no
// ground truth; correctness reaches the renderer only through an Outcome.
type QuestionView struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"question"`
	Options  []string `json:"answers"`
	ImageRef string   `json:"image,omitempty"`
}

// View is everything the renderer needs to draw the current state.
type View struct {
	Empty           bool          `json:"empty"`
	Position        int           `json:"position"`
	Question        *QuestionView `json:"question,omitempty"`
	Judgments       []Judgment    `json:"judgments,omitempty"`
	Scored          bool          `json:"scored"`
	Outcome         *Outcome      `json:"outcome,omitempty"`
	Counters        Counters      `json:"counters"`
	ProgressPercent float64       `json:"progress_percent"`
	Selected        []string      `json:"selected"`
	AdvancePending  bool          `json:"advance_pending"`
	Generation      uint64        `json:"generation"`
}

// View snapshots the session for rendering.
func (s *Session) View() View {
	v := View{
		Empty:      s.Empty(),
		Position:   s.position,
		Counters:   s.Counters(),
		Selected:   s.Selected(),
		Generation: s.generation,
	}
	if v.Empty {
		return v
	}
	q := s.working[s.position]
	qv := &QuestionView{
		ID:       q.ID,
		Category: q.Category,
		Prompt:   q.Prompt,
		ImageRef: q.ImageRef,
		Options:  make([]string, len(q.Options)),
	}
	for i, o := range q.Options {
		qv.Options[i] = o.Text
	}
	v.Question = qv
	v.Judgments = s.Judgments(s.position)
	if o, ok := s.outcomes[s.position]; ok {
		v.Scored = true
		o.Matches = append([]bool(nil), o.Matches...)
		v.Outcome = &o
	}
	v.ProgressPercent = float64(s.correctCount) / float64(len(s.working)) * 100
	_, v.AdvancePending = s.PendingAdvance()
	return v
}
