package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetStats returns the viewer's per-question statistics.
// GET /api/v1/stats
func GetStats(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		v := viewer(c)
		enabled, err := env.Prefs.StatsEnabled(ctx, v)
		if err != nil {
			env.fail(c, err)
			return
		}
		stats, err := env.Stats.ListStats(ctx, v.ID)
		if err != nil {
			env.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"enabled": enabled, "questions": stats})
	}
}

// ResetStats clears the viewer's statistics.
// DELETE /api/v1/stats
func ResetStats(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := viewer(c)
		if err := env.Stats.ResetStats(c.Request.Context(), v.ID); err != nil {
			env.fail(c, err)
			return
		}
		env.Log.Info("Statistics reset", "viewer_id", v.ID)
		if isForm(c) {
			backToPage(c, "")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// GetIngestionIssues lists the malformed records skipped by the last bank load.
// GET /api/v1/bank/issues
func GetIngestionIssues(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		issues, err := env.Issues.ListIssues(c.Request.Context())
		if err != nil {
			env.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues, "count": len(issues)})
	}
}

// Healthz reports storage reachability.
// GET /healthz
func Healthz(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := env.Storage.Ping(ctx); err != nil {
			env.Log.Warn("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"questions": env.Bank.Total,
			"sessions":  env.Sessions.Len(),
		})
	}
}
