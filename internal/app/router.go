package app

import (
	"learnhub/docs"
	"learnhub/internal/config"
	"learnhub/pkg/monitoring"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/" + strings.Trim(cfg.Server.BasePath, "/")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/" + strings.Trim(cfg.Server.BasePath, "/"))
	{
		api.GET("/health", c.health.HealthCheck)

		a.registerCourseRoutes(api, c)
		a.registerUserRoutes(api, c)
	}
}

func (a *App) registerCourseRoutes(rg *gin.RouterGroup, c *controllers) {
	courses := rg.Group("/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.GET("/:id", c.course.GetCourse)
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	users := rg.Group("/users")
	{
		users.POST("", c.user.Register)
		users.GET("/:id", c.user.GetUser)
		users.GET("/:id/recommendations", c.user.GetRecommendations)

		// 学习进度
		users.POST("/:id/progress", c.progress.UpdateProgress)
		users.GET("/:id/progress", c.progress.ListProgress)
		users.GET("/:id/progress/:course_id", c.progress.GetCourseProgress)
	}
}
