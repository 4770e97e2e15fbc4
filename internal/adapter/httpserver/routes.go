package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) registerRoutes() {
	// The hub claims its own path before routing; everything else falls through.
	if s.hub != nil {
		s.echo.Pre(echo.WrapMiddleware(s.hub.Intercept))
	}

	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	s.echo.Use(middleware.BodyLimit("1M"))

	s.echo.GET("/", s.handleRoot)

	s.registerHealthRoutes()
	s.registerMatchRoutes()

	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) registerMatchRoutes() {
	writeLimiter := newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst)

	matches := s.echo.Group("/matches")
	matches.GET("", s.handleListMatches)
	matches.POST("", s.handleCreateMatch, writeLimiter)
	matches.PATCH("/:id/score", s.handleUpdateScore, writeLimiter)
	matches.GET("/:id/commentary", s.handleListCommentary)
	matches.POST("/:id/commentary", s.handleCreateCommentary, writeLimiter)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, "Hello from matchfeed.")
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health/live"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
