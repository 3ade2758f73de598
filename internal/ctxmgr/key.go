// Package ctxmgr implements the Context Manager (§4.3): deterministic
// session identity, conversation-history hydration, external-context merge,
// and per-conversation serialization. Generalizes the gateway's
// sessions.Manager/BuildSessionKey idiom from agent-centric keys to the
// (channel_type, user_id, conversation_id) tuple spec.md calls for.
package ctxmgr

import (
	"hash/fnv"
	"strconv"

	"github.com/google/uuid"
)

// SessionID computes session_id = f(channel_type, user_id, conversation_id)
// via FNV-1a, stable across processes for the same tuple (§4.3).
func SessionID(channelType, userID string, conversationID uuid.UUID) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(channelType))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(conversationID.String()))
	return strconv.FormatUint(h.Sum64(), 36)
}
