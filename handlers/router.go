package handlers

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the page, the JSON API and the health check on router.
// HTML forms cannot send PUT or DELETE, so every mutating route also
// accepts POST.
func Register(router *gin.Engine, env *Env) {
	router.GET("/", Page(env))
	router.GET("/healthz", Healthz(env))

	api := router.Group("/api/v1")
	{
		api.GET("/bank", GetBank(env))
		api.GET("/bank/issues", GetIngestionIssues(env))

		s := api.Group("/session")
		s.GET("", GetSession(env))
		s.PUT("/categories", SetCategories(env))
		s.POST("/categories", SetCategories(env))
		s.DELETE("/categories", ClearCategories(env))
		s.POST("/categories/none", ClearCategories(env))
		s.POST("/categories/toggle", ToggleCategory(env))
		s.POST("/categories/all", SelectAllCategories(env))
		s.POST("/reshuffle", Reshuffle(env))
		s.PUT("/judgments", SetJudgment(env))
		s.POST("/judgments", SetJudgment(env))
		s.POST("/submit", Submit(env))
		s.POST("/next", Next(env))
		s.POST("/skip", Skip(env))
		s.POST("/previous", Previous(env))
		s.POST("/jump", Jump(env))

		p := api.Group("/preferences")
		p.GET("", GetPreferences(env))
		for path, h := range map[string]gin.HandlerFunc{
			"/theme":      SetTheme(env),
			"/text-scale": SetTextScale(env),
			"/intro":      SetIntroSeen(env),
			"/stats":      SetStatsEnabled(env),
		} {
			p.PUT(path, h)
			p.POST(path, h)
		}

		api.GET("/stats", GetStats(env))
		api.DELETE("/stats", ResetStats(env))
		api.POST("/stats/reset", ResetStats(env))
	}
}
