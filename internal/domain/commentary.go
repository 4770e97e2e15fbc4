package domain

import (
	"context"
	"time"
)

type Commentary struct {
	ID        int64          `json:"id"`
	MatchID   int64          `json:"matchId"`
	Minute    *int           `json:"minute"`
	Sequence  *int           `json:"sequence"`
	Period    *string        `json:"period"`
	EventType *string        `json:"eventType"`
	Actor     *string        `json:"actor"`
	Team      *string        `json:"team"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	Tags      []string       `json:"tags"`
	CreatedAt time.Time      `json:"createdAt"`
}

type NewCommentary struct {
	Minute    int
	Sequence  int
	Period    string
	EventType string
	Actor     string
	Team      string
	Message   string
	Metadata  map[string]any
	Tags      []string
}

type CommentaryRepository interface {
	Create(ctx context.Context, matchID int64, c NewCommentary) (*Commentary, error)
	ListByMatch(ctx context.Context, matchID int64, limit int) ([]Commentary, error)
}
