package broadcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// maxSafeInteger is the largest integer a float64 represents exactly (2^53 - 1).
// Browser clients cannot address ids beyond it, so neither do we.
const maxSafeInteger = 1<<53 - 1

var errMalformedMessage = errors.New("malformed message")

// inbound is the closed set of client-to-server messages.
type inbound interface{ isInbound() }

type subscribeRequest struct{ matchID int64 }

type unsubscribeRequest struct{ matchID int64 }

// ignoredMessage is any well-formed frame the hub does not act on.
type ignoredMessage struct{ reason string }

func (subscribeRequest) isInbound()   {}
func (unsubscribeRequest) isInbound() {}
func (ignoredMessage) isInbound()     {}

// parseInbound decodes a text frame. Only unparseable input is an error;
// unknown types and invalid match ids come back as ignoredMessage.
func parseInbound(data []byte) (inbound, error) {
	if !json.Valid(data) {
		return nil, errMalformedMessage
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ignoredMessage{reason: "not an object"}, nil
	}

	var msgType string
	if raw, ok := fields["type"]; !ok || json.Unmarshal(raw, &msgType) != nil {
		return ignoredMessage{reason: "missing type"}, nil
	}

	switch msgType {
	case "subscribe", "unsubscribe":
	default:
		return ignoredMessage{reason: "unknown type " + strconv.Quote(msgType)}, nil
	}

	matchID, ok := parseMatchID(fields["matchId"])
	if !ok {
		return ignoredMessage{reason: "invalid matchId"}, nil
	}

	if msgType == "subscribe" {
		return subscribeRequest{matchID: matchID}, nil
	}
	return unsubscribeRequest{matchID: matchID}, nil
}

// parseMatchID accepts JSON numbers that are whole and within ±(2^53-1).
// 42, 42.0 and 4.2e1 are the same id; "42" (a string) is not.
func parseMatchID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}

	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, false
	}
	return int64(f), true
}
