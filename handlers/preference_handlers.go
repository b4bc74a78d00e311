package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyquiz-server/models"
	"studyquiz-server/preferences"
)

type preferencesResponse struct {
	models.Preferences
	TextScaleLabel string   `json:"text_size_label"`
	Themes         []string `json:"themes"`
	IntroScope     string   `json:"intro_scope"`
}

func (env *Env) preferencesBody(p models.Preferences) preferencesResponse {
	return preferencesResponse{
		Preferences:    p,
		TextScaleLabel: preferences.TextScaleLabel(p.TextScale),
		Themes:         preferences.Themes,
		IntroScope:     env.Prefs.Scope(),
	}
}

func (env *Env) writePreferences(c *gin.Context, p models.Preferences, err error) {
	if err != nil {
		env.fail(c, err)
		return
	}
	if isForm(c) {
		backToPage(c, "")
		return
	}
	c.JSON(http.StatusOK, env.preferencesBody(p))
}

// GetPreferences returns the viewer's preferences.
// GET /api/v1/preferences
func GetPreferences(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := env.Prefs.Get(c.Request.Context(), viewer(c))
		env.writePreferences(c, p, err)
	}
}

// SetTheme PUT /api/v1/preferences/theme
func SetTheme(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ThemeRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := env.Prefs.SetTheme(c.Request.Context(), viewer(c), req.Theme)
		env.writePreferences(c, p, err)
	}
}

// SetTextScale PUT /api/v1/preferences/text-scale
func SetTextScale(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TextScaleRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := env.Prefs.SetTextScale(c.Request.Context(), viewer(c), *req.Value)
		env.writePreferences(c, p, err)
	}
}

// SetIntroSeen PUT /api/v1/preferences/intro
func SetIntroSeen(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FlagRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := env.Prefs.SetIntroSeen(c.Request.Context(), viewer(c), req.Value)
		env.writePreferences(c, p, err)
	}
}

// SetStatsEnabled PUT /api/v1/preferences/stats
// Disabling clears the recorded statistics.
func SetStatsEnabled(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FlagRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
		p, err := env.Prefs.SetStatsEnabled(c.Request.Context(), viewer(c), req.Value)
		env.writePreferences(c, p, err)
	}
}
