package storage

import "time"

// Event is one attempted tutor turn as seen by operators. Failed turns carry
// the model error and no reply.
type Event struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	UserID           string    `json:"user_id"`
	Query            string    `json:"query"`
	Reply            string    `json:"reply,omitempty"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// Failed reports whether the turn ended with a model error.
func (e Event) Failed() bool { return e.Error != "" }

// Recorder abstracts persistence of interaction events.
// LoadInteractions returns events in the order they were appended.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
