package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/matchfeed/internal/app"
	apperrors "github.com/pscheid92/matchfeed/internal/platform/errors"
)

func (s *Server) handleListCommentary(c echo.Context) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	entries, err := s.app.ListCommentary(c.Request().Context(), matchID, limit)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, dataResponse{Data: entries}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateCommentary(c echo.Context) error {
	matchID, err := parseMatchID(c)
	if err != nil {
		return err
	}

	var req createCommentaryRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	in, err := req.toInput()
	if err != nil {
		return err
	}

	entry, err := s.app.AddCommentary(c.Request().Context(), matchID, in)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, dataResponse{Data: entry}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (r createCommentaryRequest) toInput() (app.AddCommentaryInput, error) {
	var details []string
	required := func(name string, v *string) string {
		if v == nil {
			details = append(details, name+" is required")
			return ""
		}
		return *v
	}

	in := app.AddCommentaryInput{
		Period:    required("period", r.Period),
		EventType: required("eventType", r.EventType),
		Actor:     required("actor", r.Actor),
		Team:      required("team", r.Team),
		Message:   r.Message,
		Metadata:  r.Metadata,
		Tags:      r.Tags,
	}
	if r.Minute == nil {
		details = append(details, "minute is required")
	} else {
		in.Minute = *r.Minute
	}
	if r.Sequence == nil {
		details = append(details, "sequence is required")
	} else {
		in.Sequence = *r.Sequence
	}

	if len(details) > 0 {
		return app.AddCommentaryInput{}, apperrors.ValidationError("invalid payload").WithDetails(details...)
	}
	return in, nil
}
