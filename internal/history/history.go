package history

import (
	"ds-tutor/internal/chatlog"
	"ds-tutor/internal/llm"
)

// ToMessages expands stored turns into alternating user/assistant messages.
// A turn without an answer is skipped whole so roles keep alternating.
func ToMessages(turns []chatlog.Turn) []llm.Message {
	out := make([]llm.Message, 0, 2*len(turns))
	for _, t := range turns {
		if t.AI == "" {
			continue
		}
		out = append(out,
			llm.Message{Role: llm.RoleUser, Content: t.User},
			llm.Message{Role: llm.RoleAssistant, Content: t.AI},
		)
	}
	return out
}

// Append returns a new slice with turn added after turns; the input is never
// modified, so callers can keep the previous history on failure.
func Append(turns []chatlog.Turn, turn chatlog.Turn) []chatlog.Turn {
	out := make([]chatlog.Turn, 0, len(turns)+1)
	out = append(out, turns...)
	return append(out, turn)
}
