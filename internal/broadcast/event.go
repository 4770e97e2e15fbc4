package broadcast

import (
	"encoding/json"

	"github.com/pscheid92/matchfeed/internal/domain"
)

type EventType string

const (
	EventWelcome      EventType = "welcome"
	EventSubscribed   EventType = "subscribed"
	EventUnsubscribed EventType = "unsubscribed"
	EventError        EventType = "error"
	EventMatchCreated EventType = "match_created"
	EventCommentary   EventType = "commentary"
)

// Event is one outbound frame. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType `json:"type"`
	MatchID *int64    `json:"matchId,omitempty"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

func Welcome() Event { return Event{Type: EventWelcome} }

func Subscribed(matchID int64) Event {
	return Event{Type: EventSubscribed, MatchID: &matchID}
}

func Unsubscribed(matchID int64) Event {
	return Event{Type: EventUnsubscribed, MatchID: &matchID}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

func MatchCreated(match domain.Match) Event {
	return Event{Type: EventMatchCreated, Data: match}
}

func CommentaryAdded(entry domain.Commentary) Event {
	return Event{Type: EventCommentary, Data: entry}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
