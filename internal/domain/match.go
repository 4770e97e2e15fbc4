package domain

import (
	"context"
	"time"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
)

// StatusAt derives the lifecycle state of a match window at instant now.
// A missing end time means the match has no scheduled finish.
func StatusAt(start time.Time, end *time.Time, now time.Time) MatchStatus {
	if now.Before(start) {
		return MatchStatusScheduled
	}
	if end != nil && !now.Before(*end) {
		return MatchStatusFinished
	}
	return MatchStatusLive
}

type Match struct {
	ID        int64       `json:"id"`
	Sport     string      `json:"sport"`
	HomeTeam  string      `json:"homeTeam"`
	AwayTeam  string      `json:"awayTeam"`
	Status    MatchStatus `json:"status"`
	StartTime time.Time   `json:"startTime"`
	EndTime   *time.Time  `json:"endTime"`
	HomeScore int         `json:"homeScore"`
	AwayScore int         `json:"awayScore"`
	CreatedAt time.Time   `json:"createdAt"`
}

type NewMatch struct {
	Sport     string
	HomeTeam  string
	AwayTeam  string
	Status    MatchStatus
	StartTime time.Time
	EndTime   *time.Time
	HomeScore int
	AwayScore int
}

type MatchRepository interface {
	Create(ctx context.Context, m NewMatch) (*Match, error)
	GetByID(ctx context.Context, id int64) (*Match, error)
	List(ctx context.Context, limit int) ([]Match, error)
	UpdateScore(ctx context.Context, id int64, homeScore, awayScore int) (*Match, error)
	// SyncStatuses rewrites stored statuses that no longer agree with StatusAt(now)
	// and reports how many rows changed.
	SyncStatuses(ctx context.Context, now time.Time) (int64, error)
}
