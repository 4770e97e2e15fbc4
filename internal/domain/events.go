package domain

// MatchEventPublisher pushes freshly persisted records to live subscribers.
// Implementations must not block the caller and must never fail the write path.
type MatchEventPublisher interface {
	BroadcastMatchCreated(match Match)
	BroadcastCommentary(matchID int64, entry Commentary)
}
