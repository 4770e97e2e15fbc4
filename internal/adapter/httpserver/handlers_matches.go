package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/matchfeed/internal/app"
	apperrors "github.com/pscheid92/matchfeed/internal/platform/errors"
)

func (s *Server) handleListMatches(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	matches, err := s.app.ListMatches(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, dataResponse{Data: matches}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateMatch(c echo.Context) error {
	var req createMatchRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	var details []string
	in := app.CreateMatchInput{
		Sport:     req.Sport,
		HomeTeam:  req.HomeTeam,
		AwayTeam:  req.AwayTeam,
		StartTime: parseTimestamp("startTime", req.StartTime, &details),
		EndTime:   parseTimestamp("endTime", req.EndTime, &details),
		HomeScore: req.HomeScore,
		AwayScore: req.AwayScore,
	}
	if len(details) > 0 {
		return apperrors.ValidationError("invalid payload").WithDetails(details...)
	}

	match, err := s.app.CreateMatch(c.Request().Context(), in)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, dataResponse{Data: match}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateScore(c echo.Context) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return err
	}

	var req updateScoreRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	var details []string
	if req.HomeScore == nil {
		details = append(details, "homeScore is required")
	}
	if req.AwayScore == nil {
		details = append(details, "awayScore is required")
	}
	if len(details) > 0 {
		return apperrors.ValidationError("invalid payload").WithDetails(details...)
	}

	match, err := s.app.UpdateScore(c.Request().Context(), matchID, *req.HomeScore, *req.AwayScore)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, dataResponse{Data: match}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
