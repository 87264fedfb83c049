package router

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(settings handler.Settings) *gin.Engine {
	if settings.Logger == nil {
		settings.Logger = log.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestID(), handler.RequestLogger(settings.Logger))

	api := handler.NewAPI(db.DB, settings)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api/")
	})

	group := r.Group("/api")
	{
		group.GET("/", api.APIRoot)

		group.GET("/habits", api.ListHabits)
		group.POST("/habits", api.CreateHabit)
		group.GET("/habits/:id", api.GetHabit)
		group.PUT("/habits/:id", api.UpdateHabit)
		group.PATCH("/habits/:id", api.PatchHabit)
		group.DELETE("/habits/:id", api.DeleteHabit)

		group.POST("/habits/:id/toggle", api.ToggleHabit)
		group.GET("/habits/:id/stats", api.GetHabitStats)
	}

	return r
}
