package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/istimaa-app/istimaa/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg           *config.Config
	lessonHandler *Lesson
	cacheHandler  *Cache
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, lessonHandler *Lesson, cacheHandler *Cache) *Router {
	return &Router{
		cfg:           cfg,
		lessonHandler: lessonHandler,
		cacheHandler:  cacheHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupLessonRoutes(v1)
	rt.setupCacheRoutes(v1)
}

// setupLessonRoutes configures lesson building and retrieval routes
func (rt *Router) setupLessonRoutes(g *echo.Group) {
	lessonGroup := g.Group("/lessons")

	if rt.lessonHandler != nil {
		lessonGroup.POST("", rt.lessonHandler.Create)
		lessonGroup.GET("", rt.lessonHandler.List)
		lessonGroup.GET("/:id", rt.lessonHandler.Get)
		lessonGroup.GET("/:id/export", rt.lessonHandler.Export)
		lessonGroup.GET("/:id/audio", rt.lessonHandler.AudioURL)
		lessonGroup.DELETE("/:id", rt.lessonHandler.Delete)
	} else {
		lessonGroup.POST("", rt.notImplemented)
		lessonGroup.GET("", rt.notImplemented)
		lessonGroup.GET("/:id", rt.notImplemented)
		lessonGroup.GET("/:id/export", rt.notImplemented)
		lessonGroup.GET("/:id/audio", rt.notImplemented)
		lessonGroup.DELETE("/:id", rt.notImplemented)
	}
}

// setupCacheRoutes configures transcript cache routes
func (rt *Router) setupCacheRoutes(g *echo.Group) {
	cacheGroup := g.Group("/cache")

	if rt.cacheHandler != nil {
		cacheGroup.POST("/purge", rt.cacheHandler.Purge)
		cacheGroup.GET("/:sourceId", rt.cacheHandler.Get)
		cacheGroup.DELETE("/:sourceId", rt.cacheHandler.Invalidate)
	} else {
		cacheGroup.POST("/purge", rt.notImplemented)
		cacheGroup.GET("/:sourceId", rt.notImplemented)
		cacheGroup.DELETE("/:sourceId", rt.notImplemented)
	}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "This endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "Please initialize the required handler in main.go",
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	env := "development"
	if rt.cfg != nil {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": env,
	})
}
