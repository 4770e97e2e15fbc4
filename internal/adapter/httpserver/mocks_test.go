package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/app"
	"github.com/pscheid92/matchfeed/internal/broadcast"
	"github.com/pscheid92/matchfeed/internal/domain"
	"github.com/pscheid92/matchfeed/internal/platform/config"
)

type mockAppService struct {
	createMatchFn    func(ctx context.Context, in app.CreateMatchInput) (*domain.Match, error)
	listMatchesFn    func(ctx context.Context, limit int) ([]domain.Match, error)
	updateScoreFn    func(ctx context.Context, matchID int64, home, away int) (*domain.Match, error)
	addCommentaryFn  func(ctx context.Context, matchID int64, in app.AddCommentaryInput) (*domain.Commentary, error)
	listCommentaryFn func(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error)
}

func (m *mockAppService) CreateMatch(ctx context.Context, in app.CreateMatchInput) (*domain.Match, error) {
	if m.createMatchFn != nil {
		return m.createMatchFn(ctx, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListMatches(ctx context.Context, limit int) ([]domain.Match, error) {
	if m.listMatchesFn != nil {
		return m.listMatchesFn(ctx, limit)
	}
	return []domain.Match{}, nil
}

func (m *mockAppService) UpdateScore(ctx context.Context, matchID int64, home, away int) (*domain.Match, error) {
	if m.updateScoreFn != nil {
		return m.updateScoreFn(ctx, matchID, home, away)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) AddCommentary(ctx context.Context, matchID int64, in app.AddCommentaryInput) (*domain.Commentary, error) {
	if m.addCommentaryFn != nil {
		return m.addCommentaryFn(ctx, matchID, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListCommentary(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error) {
	if m.listCommentaryFn != nil {
		return m.listCommentaryFn(ctx, matchID, limit)
	}
	return []domain.Commentary{}, nil
}

// stubHub claims its path with a fixed status so tests can tell it apart from routing.
type stubHub struct {
	path  string
	stats broadcast.Stats
}

func (h *stubHub) Intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != h.path {
			next.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	})
}

func (h *stubHub) Stats() broadcast.Stats { return h.stats }

type serverOption func(*serverOptions)

type serverOptions struct {
	healthChecks []HealthCheck
	hub          liveHub
	metrics      http.Handler
	clock        clockwork.Clock
	config       *config.Config
}

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(o *serverOptions) { o.healthChecks = checks }
}

func withHub(h liveHub) serverOption {
	return func(o *serverOptions) { o.hub = h }
}

func withMetricsHandler(h http.Handler) serverOption {
	return func(o *serverOptions) { o.metrics = h }
}

func withClock(c clockwork.Clock) serverOption {
	return func(o *serverOptions) { o.clock = c }
}

func withConfig(cfg *config.Config) serverOption {
	return func(o *serverOptions) { o.config = cfg }
}

func newTestServer(t *testing.T, svc appService, opts ...serverOption) *Server {
	t.Helper()

	o := serverOptions{
		clock: clockwork.NewFakeClock(),
		config: &config.Config{
			Port:          "0",
			WebSocketPath: "/ws",
			APIRateLimit:  100,
			APIRateBurst:  100,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return NewServer(o.config, svc, o.hub, nil, o.metrics, o.healthChecks, o.clock)
}
