package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/matchfeed/internal/domain"
)

const (
	commentaryColumns = `id, match_id, minute, sequence, period, event_type, actor, team, message, metadata, tags, created_at`

	foreignKeyViolation = "23503"
)

type CommentaryRepo struct {
	pool *pgxpool.Pool
}

var _ domain.CommentaryRepository = (*CommentaryRepo)(nil)

func NewCommentaryRepo(pool *pgxpool.Pool) *CommentaryRepo {
	return &CommentaryRepo{pool: pool}
}

// Create inserts a commentary entry. A missing match surfaces as
// domain.ErrMatchNotFound via the foreign key.
func (r *CommentaryRepo) Create(ctx context.Context, matchID int64, c domain.NewCommentary) (*domain.Commentary, error) {
	row := r.pool.QueryRow(ctx, `-- name: CreateCommentary
		INSERT INTO commentary (match_id, minute, sequence, period, event_type, actor, team, message, metadata, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+commentaryColumns,
		matchID, c.Minute, c.Sequence, c.Period, c.EventType, c.Actor, c.Team, c.Message, c.Metadata, c.Tags)

	entry, err := scanCommentary(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to create commentary: %w", err)
	}
	return entry, nil
}

// ListByMatch returns up to limit entries for a match, newest first.
func (r *CommentaryRepo) ListByMatch(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error) {
	rows, err := r.pool.Query(ctx, `-- name: ListCommentary
		SELECT `+commentaryColumns+` FROM commentary
		WHERE match_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commentary: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.Commentary, 0, limit)
	for rows.Next() {
		entry, err := scanCommentary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commentary: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list commentary: %w", err)
	}
	return entries, nil
}

func scanCommentary(row pgx.Row) (*domain.Commentary, error) {
	var c domain.Commentary
	err := row.Scan(&c.ID, &c.MatchID, &c.Minute, &c.Sequence, &c.Period, &c.EventType,
		&c.Actor, &c.Team, &c.Message, &c.Metadata, &c.Tags, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
