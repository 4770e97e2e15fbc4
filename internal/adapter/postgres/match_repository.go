package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/matchfeed/internal/domain"
)

const matchColumns = `id, sport, home_team, away_team, status::text, start_time, end_time, home_score, away_score, created_at`

type MatchRepo struct {
	pool *pgxpool.Pool
}

var _ domain.MatchRepository = (*MatchRepo)(nil)

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

func (r *MatchRepo) Create(ctx context.Context, m domain.NewMatch) (*domain.Match, error) {
	row := r.pool.QueryRow(ctx, `-- name: CreateMatch
		INSERT INTO matches (sport, home_team, away_team, status, start_time, end_time, home_score, away_score)
		VALUES ($1, $2, $3, $4::match_status, $5, $6, $7, $8)
		RETURNING `+matchColumns,
		m.Sport, m.HomeTeam, m.AwayTeam, string(m.Status), m.StartTime, m.EndTime, m.HomeScore, m.AwayScore)

	match, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	row := r.pool.QueryRow(ctx, `-- name: GetMatch
		SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)

	match, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// List returns up to limit matches, newest first.
func (r *MatchRepo) List(ctx context.Context, limit int) ([]domain.Match, error) {
	rows, err := r.pool.Query(ctx, `-- name: ListMatches
		SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.Match, 0, limit)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (r *MatchRepo) UpdateScore(ctx context.Context, id int64, homeScore, awayScore int) (*domain.Match, error) {
	row := r.pool.QueryRow(ctx, `-- name: UpdateMatchScore
		UPDATE matches SET home_score = $2, away_score = $3
		WHERE id = $1
		RETURNING `+matchColumns, id, homeScore, awayScore)

	match, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update score: %w", err)
	}
	return match, nil
}

// SyncStatuses applies the same windowing as domain.StatusAt in a single statement.
func (r *MatchRepo) SyncStatuses(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `-- name: SyncMatchStatuses
		UPDATE matches SET status = s.derived
		FROM (
			SELECT id, CASE
				WHEN $1 < start_time THEN 'scheduled'::match_status
				WHEN end_time IS NOT NULL AND $1 >= end_time THEN 'finished'::match_status
				ELSE 'live'::match_status
			END AS derived
			FROM matches
		) AS s
		WHERE matches.id = s.id AND matches.status <> s.derived`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sync match statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var (
		m      domain.Match
		status string
		end    *time.Time
	)
	if err := row.Scan(&m.ID, &m.Sport, &m.HomeTeam, &m.AwayTeam, &status, &m.StartTime, &end, &m.HomeScore, &m.AwayScore, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = domain.MatchStatus(status)
	m.EndTime = end
	return &m, nil
}
