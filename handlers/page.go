package handlers

import (
	"embed"
	"html/template"
	"math"
	"net/http"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"

	"studyquiz-server/middleware"
	"studyquiz-server/models"
	"studyquiz-server/preferences"
	"studyquiz-server/quiz"
	"studyquiz-server/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer loads the page templates.
func Renderer() multitemplate.Renderer {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}
	page := template.Must(template.New("page.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	r := multitemplate.NewRenderer()
	r.Add("page", page)
	return r
}

type categoryOption struct {
	Name     string
	Selected bool
}

type themeOption struct {
	Name   string
	Label  string
	Active bool
}

type scaleOption struct {
	Value  float64
	Label  string
	Active bool
}

type judgeButton struct {
	Value  string
	Symbol string
	Active bool
}

type optionRow struct {
	Index   int
	Text    string
	Scored  bool
	Match   bool
	Buttons []judgeButton
}

type pageData struct {
	Title           string
	Theme           string
	TextScale       float64
	TextScaleLabel  string
	Themes          []themeOption
	TextScales      []scaleOption
	ShowIntro       bool
	StatsEnabled    bool
	Messages        models.Messages
	Notice          string
	Categories      []categoryOption
	View            quiz.View
	Position        int // 1-based
	Options         []optionRow
	Feedback        string
	FeedbackCorrect bool
	RefreshSeconds  int
	ShowStats       bool
	Stats           []models.QuestionStat
}

var judgeButtons = []struct {
	value  quiz.Judgment
	symbol string
}{
	{quiz.Affirmed, "✓"},
	{quiz.Unset, "−"},
	{quiz.Rejected, "✕"},
}

func optionRows(v quiz.View) []optionRow {
	if v.Question == nil {
		return nil
	}
	rows := make([]optionRow, len(v.Question.Options))
	for i, text := range v.Question.Options {
		var current quiz.Judgment
		if i < len(v.Judgments) {
			current = v.Judgments[i]
		}
		row := optionRow{Index: i, Text: text}
		if v.Outcome != nil && i < len(v.Outcome.Matches) {
			row.Scored = true
			row.Match = v.Outcome.Matches[i]
		}
		for _, b := range judgeButtons {
			row.Buttons = append(row.Buttons, judgeButton{
				Value:  b.value.String(),
				Symbol: b.symbol,
				// an undecided option shows no active mark
				Active: current != quiz.Unset && current == b.value,
			})
		}
		rows[i] = row
	}
	return rows
}

func (env *Env) noticeText(code string) string {
	switch code {
	case noticeNotAnswered:
		return env.Bank.Messages.NotAnswered
	case noticeInvalid:
		return "Neplatný požadavek."
	case noticeError:
		return "Něco se pokazilo, zkuste to znovu."
	}
	return ""
}

// Page renders the quiz page.
// GET /
func Page(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		v := viewer(c)
		prefs, err := env.Prefs.Get(ctx, v)
		if err != nil {
			env.Log.Error("Failed to load preferences for page", "viewer_id", v.ID, "error", err)
			prefs = preferences.Defaults(v.ID)
		}
		view := env.Sessions.View(middleware.TabID(c))

		data := pageData{
			Title:          env.Bank.Title,
			Theme:          prefs.Theme,
			TextScale:      prefs.TextScale,
			TextScaleLabel: preferences.TextScaleLabel(prefs.TextScale),
			ShowIntro:      !prefs.IntroSeen,
			StatsEnabled:   prefs.StatsEnabled,
			Messages:       env.Bank.Messages,
			Notice:         env.noticeText(c.Query("notice")),
			View:           view,
			Position:       view.Position + 1,
			Options:        optionRows(view),
			ShowStats:      c.Query("panel") == "stats",
		}
		if data.Title == "" {
			data.Title = "Kvíz"
		}
		for _, t := range preferences.Themes {
			data.Themes = append(data.Themes, themeOption{Name: t, Label: preferences.ThemeLabel(t), Active: t == prefs.Theme})
		}
		for _, s := range preferences.TextScaleSteps() {
			data.TextScales = append(data.TextScales, scaleOption{Value: s, Label: preferences.TextScaleLabel(s), Active: s == prefs.TextScale})
		}
		for _, name := range env.Bank.Categories {
			data.Categories = append(data.Categories, categoryOption{Name: name, Selected: utils.ContainsString(view.Selected, name)})
		}
		if view.Outcome != nil {
			data.FeedbackCorrect = view.Outcome.AllCorrect
			data.Feedback = env.Bank.Messages.Incorrect
			if view.Outcome.AllCorrect {
				data.Feedback = env.Bank.Messages.Correct
			}
		}
		if view.AdvancePending {
			data.RefreshSeconds = int(math.Max(1, math.Ceil(env.AutoAdvanceDelay.Seconds())))
		}
		if data.ShowStats {
			stats, err := env.Stats.ListStats(ctx, v.ID)
			if err != nil {
				env.Log.Error("Failed to load statistics for page", "viewer_id", v.ID, "error", err)
			}
			data.Stats = stats
		}
		c.HTML(http.StatusOK, "page", data)
	}
}
