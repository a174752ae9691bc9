package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/datallboy/fanout/internal/api/controllers"
	"github.com/datallboy/fanout/internal/app"
)

func RegisterRoutes(e *echo.Echo, app *app.Context, runs controllers.RunService) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	runsCtrl := &controllers.RunsController{App: app, Runs: runs}

	e.POST("/api/runs", runsCtrl.Create)
	e.GET("/api/runs", runsCtrl.List)
	e.GET("/api/runs/:id", runsCtrl.Get)

	// Prometheus scrape endpoint
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}
}
