package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/domain"
	apperrors "github.com/pscheid92/matchfeed/internal/platform/errors"
)

// MaxListLimit caps every list endpoint and is the default when no limit is given.
const MaxListLimit = 100

// CreateMatchInput is the caller-supplied part of a new match.
type CreateMatchInput struct {
	Sport     string
	HomeTeam  string
	AwayTeam  string
	StartTime time.Time
	EndTime   time.Time
	HomeScore *int
	AwayScore *int
}

// AddCommentaryInput is the caller-supplied part of a commentary entry.
type AddCommentaryInput struct {
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

// Service is the only component that references multiple domain components.
type Service struct {
	matches    domain.MatchRepository
	commentary domain.CommentaryRepository
	publisher  domain.MatchEventPublisher
	clock      clockwork.Clock
}

// NewService creates the application layer service. publisher may be nil, in
// which case writes are persisted without a live broadcast.
func NewService(matches domain.MatchRepository, commentary domain.CommentaryRepository, publisher domain.MatchEventPublisher, clock clockwork.Clock) *Service {
	return &Service{
		matches:    matches,
		commentary: commentary,
		publisher:  publisher,
		clock:      clock,
	}
}

// CreateMatch validates and persists a match, deriving its status from the
// current time, then announces it to every live connection.
func (s *Service) CreateMatch(ctx context.Context, in CreateMatchInput) (*domain.Match, error) {
	if err := validateCreateMatch(in); err != nil {
		return nil, err
	}

	end := in.EndTime
	m := domain.NewMatch{
		Sport:     strings.TrimSpace(in.Sport),
		HomeTeam:  strings.TrimSpace(in.HomeTeam),
		AwayTeam:  strings.TrimSpace(in.AwayTeam),
		Status:    domain.StatusAt(in.StartTime, &end, s.clock.Now()),
		StartTime: in.StartTime,
		EndTime:   &end,
	}
	if in.HomeScore != nil {
		m.HomeScore = *in.HomeScore
	}
	if in.AwayScore != nil {
		m.AwayScore = *in.AwayScore
	}

	match, err := s.matches.Create(ctx, m)
	if err != nil {
		return nil, apperrors.InternalError("failed to create match", err)
	}

	slog.InfoContext(ctx, "Match created", "match_id", match.ID, "status", match.Status)
	s.publish(ctx, "match_created", func() { s.publisher.BroadcastMatchCreated(*match) })
	return match, nil
}

// ListMatches returns the newest matches. A non-positive limit means the maximum.
func (s *Service) ListMatches(ctx context.Context, limit int) ([]domain.Match, error) {
	matches, err := s.matches.List(ctx, clampLimit(limit))
	if err != nil {
		return nil, apperrors.InternalError("failed to list matches", err)
	}
	return matches, nil
}

func (s *Service) UpdateScore(ctx context.Context, matchID int64, homeScore, awayScore int) (*domain.Match, error) {
	var details []string
	if homeScore < 0 {
		details = append(details, "homeScore must be a non-negative integer")
	}
	if awayScore < 0 {
		details = append(details, "awayScore must be a non-negative integer")
	}
	if len(details) > 0 {
		return nil, apperrors.ValidationError("invalid payload").WithDetails(details...)
	}

	match, err := s.matches.UpdateScore(ctx, matchID, homeScore, awayScore)
	if errors.Is(err, domain.ErrMatchNotFound) {
		return nil, matchNotFound(matchID)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to update score", err)
	}

	slog.InfoContext(ctx, "Score updated", "match_id", matchID, "home", homeScore, "away", awayScore)
	return match, nil
}

// AddCommentary persists an entry and pushes it to the match's subscribers.
func (s *Service) AddCommentary(ctx context.Context, matchID int64, in AddCommentaryInput) (*domain.Commentary, error) {
	if err := validateCommentary(in); err != nil {
		return nil, err
	}

	entry, err := s.commentary.Create(ctx, matchID, domain.NewCommentary{
		Minute:    in.Minute,
		Sequence:  in.Sequence,
		Period:    in.Period,
		EventType: in.EventType,
		Actor:     in.Actor,
		Team:      in.Team,
		Message:   in.Message,
		Metadata:  in.Metadata,
		Tags:      in.Tags,
	})
	if errors.Is(err, domain.ErrMatchNotFound) {
		return nil, matchNotFound(matchID)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to create commentary", err)
	}

	s.publish(ctx, "commentary", func() { s.publisher.BroadcastCommentary(entry.MatchID, *entry) })
	return entry, nil
}

// ListCommentary returns the newest entries of a match. A non-positive limit means the maximum.
func (s *Service) ListCommentary(ctx context.Context, matchID int64, limit int) ([]domain.Commentary, error) {
	entries, err := s.commentary.ListByMatch(ctx, matchID, clampLimit(limit))
	if err != nil {
		return nil, apperrors.InternalError("failed to list commentary", err)
	}
	return entries, nil
}

// publish runs a broadcast without letting a publisher failure reach the caller.
func (s *Service) publish(ctx context.Context, event string, fn func()) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Broadcast failed", "event", event, "panic", r)
		}
	}()
	fn()
}

func validateCreateMatch(in CreateMatchInput) error {
	var details []string
	if strings.TrimSpace(in.Sport) == "" {
		details = append(details, "sport is required")
	}
	if strings.TrimSpace(in.HomeTeam) == "" {
		details = append(details, "homeTeam is required")
	}
	if strings.TrimSpace(in.AwayTeam) == "" {
		details = append(details, "awayTeam is required")
	}
	if in.StartTime.IsZero() {
		details = append(details, "startTime is required")
	}
	if in.EndTime.IsZero() {
		details = append(details, "endTime is required")
	}
	if !in.StartTime.IsZero() && !in.EndTime.IsZero() && !in.EndTime.After(in.StartTime) {
		details = append(details, "endTime must be after startTime")
	}
	if in.HomeScore != nil && *in.HomeScore < 0 {
		details = append(details, "homeScore must be a non-negative integer")
	}
	if in.AwayScore != nil && *in.AwayScore < 0 {
		details = append(details, "awayScore must be a non-negative integer")
	}

	if len(details) > 0 {
		return apperrors.ValidationError("invalid payload").WithDetails(details...)
	}
	return nil
}

func validateCommentary(in AddCommentaryInput) error {
	var details []string
	if in.Minute < 0 {
		details = append(details, "minute must be a non-negative integer")
	}
	if in.Sequence <= 0 {
		details = append(details, "sequence must be a positive integer")
	}
	if in.Message == "" {
		details = append(details, "message is required")
	}

	if len(details) > 0 {
		return apperrors.ValidationError("invalid payload").WithDetails(details...)
	}
	return nil
}

func matchNotFound(matchID int64) error {
	return apperrors.NotFoundError(fmt.Sprintf("match %d not found", matchID)).WithField("matchId", matchID)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
