package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"studyquiz-server/db"
	"studyquiz-server/logger"
	"studyquiz-server/middleware"
	"studyquiz-server/models"
	"studyquiz-server/preferences"
	"studyquiz-server/quiz"
	"studyquiz-server/sessions"
)

// Env carries the dependencies shared by all handlers.
type Env struct {
	Bank             models.Bank
	Sessions         *sessions.Registry
	Prefs            *preferences.Service
	Stats            db.StatsRepository
	Issues           db.IssueRepository
	Storage          interface{ Ping(ctx context.Context) error }
	Log              *logger.Logger
	AutoAdvanceDelay time.Duration
}

// notice codes carried back to the page after a form post
const (
	noticeNotAnswered = "not_answered"
	noticeInvalid     = "invalid"
	noticeError       = "error"
)

func viewer(c *gin.Context) preferences.Viewer {
	return preferences.Viewer{ID: middleware.ViewerID(c), Tab: middleware.TabID(c)}
}

// isForm reports whether the request came from a plain HTML form.
func isForm(c *gin.Context) bool {
	switch c.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return true
	}
	return false
}

// backToPage redirects form posts to the page, optionally with a notice.
func backToPage(c *gin.Context, notice string) {
	target := "/"
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	c.Redirect(http.StatusSeeOther, target)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, quiz.ErrPositionOutOfRange),
		errors.Is(err, quiz.ErrOptionOutOfRange),
		errors.Is(err, quiz.ErrUnknownJudgment),
		errors.Is(err, preferences.ErrUnknownTheme),
		errors.Is(err, preferences.ErrTextScaleOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON, or redirects a form post back to the page.
func (env *Env) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		env.Log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	if isForm(c) {
		if status == http.StatusBadRequest {
			backToPage(c, noticeInvalid)
		} else {
			backToPage(c, noticeError)
		}
		return
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "Internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest reports a malformed body.
func badRequest(c *gin.Context, err error) {
	if isForm(c) {
		backToPage(c, noticeInvalid)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
