// Package contextmgr owns the set of per-session [UnifiedConversationContext]
// records: conversation history, fire-and-forget active actions, and
// disambiguation memory, keyed by a session id whose generation and
// validation rules are pure functions usable anywhere in the tree.
//
// Grounded on the ContextManager's token-budget-triggered-summarisation
// shape (generalized here to turn-count bounding, since the spec's history
// is a fixed-size ring buffer rather than a token-budget window) and on
// original_source/irene/core/session_manager.py for the exact session id
// format and validation rules.
package contextmgr

import (
	"strings"

	"github.com/google/uuid"
)

const sessionSuffix = "_session"

// GenerateSessionID produces a session id in one of three formats,
// preferring the most specific identifier available:
//
//   - Room-scoped: "{roomID}_session" — the primary format for IoT rooms.
//   - Client-scoped: "{clientID}_session" — for web clients without a room.
//   - Generated: "{source}_{uuid8}_session" — fallback when neither is known.
func GenerateSessionID(source, roomID, clientID string) string {
	switch {
	case roomID != "":
		return roomID + sessionSuffix
	case clientID != "":
		return clientID + sessionSuffix
	default:
		return source + "_" + uuid.New().String()[:8] + sessionSuffix
	}
}

// ValidSessionID reports whether id follows the expected session id shape:
// contains the "_session" suffix and is long enough to carry an identifier
// in front of it.
func ValidSessionID(id string) bool {
	return strings.Contains(id, sessionSuffix) && len(id) > 8
}

// ExtractRoom returns the room identifier embedded in id, if id is a
// room-scoped session id. Distinguishing a room id from a generated id's
// trailing UUID fragment is heuristic: a generated id's last 8 characters
// before the suffix are hex digits from a UUID, so any digit in that window
// disqualifies the candidate as a room name.
func ExtractRoom(id string) (string, bool) {
	if !strings.HasSuffix(id, sessionSuffix) {
		return "", false
	}
	room := strings.TrimSuffix(id, sessionSuffix)
	tail := room
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	for _, c := range tail {
		if c >= '0' && c <= '9' {
			return "", false
		}
	}
	return room, true
}

// SessionType classifies a session id for diagnostics and metrics.
type SessionType string

const (
	SessionTypeRoom      SessionType = "room"
	SessionTypeClient    SessionType = "client"
	SessionTypeGenerated SessionType = "generated"
	SessionTypeUnknown   SessionType = "unknown"
)

// ClassifySessionID determines which of [GenerateSessionID]'s three shapes
// produced id.
func ClassifySessionID(id string) SessionType {
	if !ValidSessionID(id) {
		return SessionTypeUnknown
	}
	if _, ok := ExtractRoom(id); ok {
		return SessionTypeRoom
	}

	base := strings.TrimSuffix(id, sessionSuffix)
	parts := strings.Split(base, "_")
	if len(parts) >= 2 && isHex8(parts[len(parts)-1]) {
		return SessionTypeGenerated
	}
	if strings.Contains(base, "_") {
		return SessionTypeClient
	}
	return SessionTypeClient
}

func isHex8(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		isHexDigit := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHexDigit {
			return false
		}
	}
	return true
}
