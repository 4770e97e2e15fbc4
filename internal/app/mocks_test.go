package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pscheid92/matchfeed/internal/domain"
)

type mockMatchRepo struct {
	createFn       func(ctx context.Context, m domain.NewMatch) (*domain.Match, error)
	getByIDFn      func(ctx context.Context, id int64) (*domain.Match, error)
	listFn         func(ctx context.Context, limit int) ([]domain.Match, error)
	updateScoreFn  func(ctx context.Context, id int64, home, away int) (*domain.Match, error)
	syncStatusesFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockMatchRepo) Create(ctx context.Context, nm domain.NewMatch) (*domain.Match, error) {
	if m.createFn != nil {
		return m.createFn(ctx, nm)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMatchRepo) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMatchRepo) List(ctx context.Context, limit int) ([]domain.Match, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMatchRepo) UpdateScore(ctx context.Context, id int64, home, away int) (*domain.Match, error) {
	if m.updateScoreFn != nil {
		return m.updateScoreFn(ctx, id, home, away)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMatchRepo) SyncStatuses(ctx context.Context, now time.Time) (int64, error) {
	if m.syncStatusesFn != nil {
		return m.syncStatusesFn(ctx, now)
	}
	return 0, nil
}

type mockCommentaryRepo struct {
	createFn      func(ctx context.Context, matchID int64, c domain.NewCommentary) (*domain.Commentary, error)
	listByMatchFn func(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error)
}

func (m *mockCommentaryRepo) Create(ctx context.Context, matchID int64, c domain.NewCommentary) (*domain.Commentary, error) {
	if m.createFn != nil {
		return m.createFn(ctx, matchID, c)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCommentaryRepo) ListByMatch(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error) {
	if m.listByMatchFn != nil {
		return m.listByMatchFn(ctx, matchID, limit)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockPublisher struct {
	mu         sync.Mutex
	matches    []domain.Match
	commentary []domain.Commentary
	panicWith  any
}

func (m *mockPublisher) BroadcastMatchCreated(match domain.Match) {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches = append(m.matches, match)
}

func (m *mockPublisher) BroadcastCommentary(_ int64, entry domain.Commentary) {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commentary = append(m.commentary, entry)
}

type mockLeadership struct {
	mu         sync.Mutex
	acquire    bool
	acquireErr error
	renewErr   error
	acquires   int
	renews     int
	releases   int
}

func (m *mockLeadership) TryAcquire(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	return m.acquire, m.acquireErr
}

func (m *mockLeadership) Renew(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renews++
	return m.renewErr
}

func (m *mockLeadership) Release(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	return nil
}

func (m *mockLeadership) counts() (acquires, renews, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires, m.renews, m.releases
}
