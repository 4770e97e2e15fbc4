package httpserver

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/matchfeed/internal/platform/errors"
)

type dataResponse struct {
	Data any `json:"data"`
}

type createMatchRequest struct {
	Sport     string `json:"sport"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	HomeScore *int   `json:"homeScore"`
	AwayScore *int   `json:"awayScore"`
}

type updateScoreRequest struct {
	HomeScore *int `json:"homeScore"`
	AwayScore *int `json:"awayScore"`
}

type createCommentaryRequest struct {
	Minute    *int           `json:"minute"`
	Sequence  *int           `json:"sequence"`
	Period    *string        `json:"period"`
	EventType *string        `json:"eventType"`
	Actor     *string        `json:"actor"`
	Team      *string        `json:"team"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	Tags      []string       `json:"tags"`
}

var binder = &echo.DefaultBinder{}

// bindBody decodes the JSON body only; path and query values are parsed explicitly.
func bindBody(c echo.Context, dst any) error {
	if err := binder.BindBody(c, dst); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return WrapHTTPError(httpErr).WithDetails("request body must be a valid JSON object")
		}
		return apperrors.ValidationError("invalid payload").WithDetails(err.Error())
	}
	return nil
}

func parseMatchID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError("invalid params").
			WithDetails("id must be a positive integer").
			WithField("id", raw)
	}
	return id, nil
}

// parseLimit returns 0 when the query omits limit, leaving the default to the service.
func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.ValidationError("invalid query").
			WithDetails("limit must be a positive integer").
			WithField("limit", raw)
	}
	return limit, nil
}

func parseTimestamp(field, raw string, details *[]string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		*details = append(*details, field+" must be an ISO-8601 datetime")
		return time.Time{}
	}
	return t
}
