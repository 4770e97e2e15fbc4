package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/matchfeed/internal/adapter/metrics"
	"github.com/pscheid92/matchfeed/internal/app"
	"github.com/pscheid92/matchfeed/internal/broadcast"
	"github.com/pscheid92/matchfeed/internal/domain"
	"github.com/pscheid92/matchfeed/internal/platform/config"
)

type appService interface {
	CreateMatch(ctx context.Context, in app.CreateMatchInput) (*domain.Match, error)
	ListMatches(ctx context.Context, limit int) ([]domain.Match, error)
	UpdateScore(ctx context.Context, matchID int64, homeScore, awayScore int) (*domain.Match, error)
	AddCommentary(ctx context.Context, matchID int64, in app.AddCommentaryInput) (*domain.Commentary, error)
	ListCommentary(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error)
}

// liveHub is the part of the fan-out hub the HTTP surface depends on.
type liveHub interface {
	Intercept(next http.Handler) http.Handler
	Stats() broadcast.Stats
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            appService
	hub            liveHub
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck

	clock     clockwork.Clock
	startTime time.Time
}

// NewServer wires routes. httpMetrics and metricsHandler may be nil.
func NewServer(cfg *config.Config, app appService, hub liveHub, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            app,
		hub:            hub,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		healthChecks:   healthChecks,
		clock:          clock,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port, "ws_path", s.config.WebSocketPath)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
