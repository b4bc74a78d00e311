package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyquiz-server/middleware"
	"studyquiz-server/models"
	"studyquiz-server/quiz"
	"studyquiz-server/utils"
)

const excerptLength = 80

// sessionResponse is the JSON shape of every session endpoint.
type sessionResponse struct {
	quiz.View
	Message string       `json:"message,omitempty"`
	Change  *quiz.Change `json:"change,omitempty"`
}

func (env *Env) sessionBody(v quiz.View, change *quiz.Change) sessionResponse {
	r := sessionResponse{View: v}
	if v.Empty {
		r.Message = env.Bank.Messages.EmptySelection
	}
	if change == nil || change.Kind == quiz.ChangeNone {
		return r
	}
	r.Change = change
	switch {
	case change.Kind == quiz.ChangeNotAnswered:
		r.Message = env.Bank.Messages.NotAnswered
	case change.Kind == quiz.ChangeSubmitted && change.Outcome != nil && change.Outcome.AllCorrect:
		r.Message = env.Bank.Messages.Correct
	case change.Kind == quiz.ChangeSubmitted:
		r.Message = env.Bank.Messages.Incorrect
	}
	return r
}

// act runs fn on the caller's session and writes the response.
func (env *Env) act(c *gin.Context, fn func(*quiz.Session) (quiz.Change, error)) (quiz.Change, bool) {
	change, v, err := env.Sessions.Do(middleware.TabID(c), fn)
	if err != nil {
		env.fail(c, err)
		return change, false
	}
	status, notice := http.StatusOK, ""
	if change.Kind == quiz.ChangeNotAnswered {
		status, notice = http.StatusUnprocessableEntity, noticeNotAnswered
	}
	if isForm(c) {
		backToPage(c, notice)
	} else {
		c.JSON(status, env.sessionBody(v, &change))
	}
	return change, true
}

func transition(fn func(*quiz.Session) quiz.Change) func(*quiz.Session) (quiz.Change, error) {
	return func(s *quiz.Session) (quiz.Change, error) { return fn(s), nil }
}

// GetBank returns the bank title, categories and size.
// GET /api/v1/bank
func GetBank(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, env.Bank)
	}
}

// GetSession returns the current view of the caller's session.
// GET /api/v1/session
func GetSession(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := env.Sessions.View(middleware.TabID(c))
		c.JSON(http.StatusOK, env.sessionBody(v, nil))
	}
}

// SetCategories replaces the selected categories and restarts the session.
// PUT /api/v1/session/categories
func SetCategories(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CategoriesRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		env.act(c, transition(func(s *quiz.Session) quiz.Change { return s.SetCategories(req.Categories) }))
	}
}

// ToggleCategory flips one category.
// POST /api/v1/session/categories/toggle
func ToggleCategory(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ToggleCategoryRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		env.act(c, transition(func(s *quiz.Session) quiz.Change { return s.ToggleCategory(req.Category) }))
	}
}

// SelectAllCategories selects every category.
// POST /api/v1/session/categories/all
func SelectAllCategories(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		env.act(c, transition((*quiz.Session).SelectAll))
	}
}

// ClearCategories deselects every category.
// DELETE /api/v1/session/categories
func ClearCategories(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		env.act(c, transition((*quiz.Session).DeselectAll))
	}
}

// Reshuffle restarts the session over the same selection.
// POST /api/v1/session/reshuffle
func Reshuffle(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		env.act(c, transition((*quiz.Session).Reshuffle))
	}
}

// SetJudgment records a judgment on one option.
// PUT /api/v1/session/judgments
func SetJudgment(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.JudgmentRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		j, err := quiz.ParseJudgment(req.Value)
		if err != nil {
			env.fail(c, err)
			return
		}
		env.act(c, func(s *quiz.Session) (quiz.Change, error) {
			return s.SetJudgment(*req.Position, *req.Option, j)
		})
	}
}

// Submit scores the judgments of one position.
// POST /api/v1/session/submit
func Submit(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SubmitRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		change, ok := env.act(c, transition(func(s *quiz.Session) quiz.Change { return s.Submit(*req.Position) }))
		if ok {
			env.recordAttempt(c, change)
		}
	}
}

// recordAttempt feeds an accepted submission to the statistics store when the
// viewer has statistics enabled. Failures are logged; the submission stands.
func (env *Env) recordAttempt(c *gin.Context, change quiz.Change) {
	if change.Kind != quiz.ChangeSubmitted || change.Question == nil || env.Stats == nil {
		return
	}
	ctx := c.Request.Context()
	v := viewer(c)
	enabled, err := env.Prefs.StatsEnabled(ctx, v)
	if err != nil {
		env.Log.Warn("Could not read statistics preference", "viewer_id", v.ID, "error", err)
		return
	}
	if !enabled {
		return
	}
	q := change.Question
	attempt := models.Attempt{
		QuestionID: q.ID,
		Category:   q.Category,
		Excerpt:    utils.Excerpt(q.Prompt, excerptLength),
		AllCorrect: change.Outcome != nil && change.Outcome.AllCorrect,
	}
	for i, j := range change.Judgments {
		if j == quiz.Affirmed && i < len(q.Options) {
			attempt.Affirmed = append(attempt.Affirmed, models.AnswerMark{Index: i, Correct: q.Options[i].IsCorrect})
		}
	}
	if err := env.Stats.RecordAttempt(ctx, v.ID, attempt); err != nil {
		env.Log.Error("Failed to record attempt", "viewer_id", v.ID, "question_id", q.ID, "error", err)
	}
}

// Next moves forward, wrapping after the last question.
// POST /api/v1/session/next
func Next(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		env.act(c, transition((*quiz.Session).Next))
	}
}

// Skip moves forward without scoring.
// POST /api/v1/session/skip
func Skip(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		env.act(c, transition((*quiz.Session).Skip))
	}
}

// Previous moves back one question.
// POST /api/v1/session/previous
func Previous(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		env.act(c, transition((*quiz.Session).Previous))
	}
}

// Jump moves to a position or to a question by ID.
// POST /api/v1/session/jump
func Jump(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.JumpRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		switch {
		case req.QuestionID != "":
			env.act(c, transition(func(s *quiz.Session) quiz.Change { return s.JumpToQuestion(req.QuestionID) }))
		case req.Position != nil:
			env.act(c, transition(func(s *quiz.Session) quiz.Change { return s.JumpTo(*req.Position) }))
		default:
			badRequest(c, errors.New("position or question_id is required"))
		}
	}
}
