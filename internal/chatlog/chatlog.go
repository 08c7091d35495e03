// Package chatlog persists per-user tutor conversations.
//
// A conversation is stored as a single JSON array of turns and is always
// rewritten in full. Loading never fails: a missing or unreadable log is
// treated as an empty conversation and the cause is logged for operators.
package chatlog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Clear when the user has no stored conversation.
var ErrNotFound = errors.New("chat log not found")

// Turn is one question and the answer generated for it.
type Turn struct {
	User string `json:"user"`
	AI   string `json:"ai"`
}

// Store abstracts persistence of conversations keyed by user identifier.
type Store interface {
	Load(userID string) []Turn
	Save(userID string, turns []Turn) error
	Clear(userID string) error
	Export(userID string) (string, bool)
}

// hashedKeyPrefix contains '+', which isPlainKey rejects, so hashed keys never
// collide with a verbatim identifier.
const hashedKeyPrefix = "u+"

// FileKey maps a user identifier to a filesystem-safe key. Plain identifiers
// are kept verbatim; anything else is replaced by a short hash.
func FileKey(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}
	if isPlainKey(userID) {
		return userID, nil
	}
	sum := sha256.Sum256([]byte(userID))
	return hashedKeyPrefix + hex.EncodeToString(sum[:])[:16], nil
}

func isPlainKey(s string) bool {
	if len(s) > 128 || strings.HasPrefix(s, ".") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// FormatTranscript renders turns as "User: ...\nAI: ...\n" blocks separated
// by blank lines.
func FormatTranscript(turns []Turn) string {
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, fmt.Sprintf("User: %s\nAI: %s\n", t.User, t.AI))
	}
	return strings.Join(blocks, "\n")
}

// ExportFileName is the attachment name offered for a user's transcript. It
// is always a single path element, derived from FileKey.
func ExportFileName(userID string) string {
	key, err := FileKey(userID)
	if err != nil {
		key = "chat"
	}
	return key + "_chat_history.txt"
}

func export(turns []Turn) (string, bool) {
	if len(turns) == 0 {
		return "", false
	}
	return FormatTranscript(turns), true
}
