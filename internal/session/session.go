// Package session sequences one tutor conversation: starting it for a user,
// answering questions, clearing and exporting the stored transcript.
//
// State is a plain value. Every operation takes the current State and returns
// the next one, so the front-end decides where sessions live.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ds-tutor/internal/chatlog"
	"ds-tutor/internal/history"
	"ds-tutor/internal/llm"
	"ds-tutor/internal/prompt"
	"ds-tutor/internal/storage"
)

var (
	ErrEmptyUserID = errors.New("please provide a username")
	ErrNotActive   = errors.New("session is not started")
	ErrEmptyQuery  = errors.New("empty question")
	// ErrPersist wraps a save failure that happened after a successful answer.
	ErrPersist = errors.New("failed to save chat history")
)

// TurnError is a failed model call. The session state is unchanged.
type TurnError struct {
	Err error
}

func (e *TurnError) Error() string { return e.Err.Error() }
func (e *TurnError) Unwrap() error { return e.Err }

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
)

// Notice is a short status message for the user.
type Notice struct {
	Level Level
	Text  string
}

const (
	NoticeLoaded         = "Chat loaded!"
	NoticeNewSession     = "New session started."
	NoticeCleared        = "Chat history erased."
	NoticeNothingToClear = "No saved chat history to delete."
	NoticeNoHistory      = "No chat history available."
)

// State is the in-memory view of one user's conversation. The zero value is
// an unauthenticated session.
type State struct {
	UserID  string
	History []chatlog.Turn
}

func (s State) Active() bool { return s.UserID != "" }

// Export is a downloadable transcript.
type Export struct {
	FileName string
	Data     []byte
}

type Controller struct {
	store     chatlog.Store
	client    llm.Client
	assembler *prompt.Assembler
	recorder  storage.Recorder
	now       func() time.Time
}

// New builds a controller. recorder may be nil.
func New(store chatlog.Store, client llm.Client, assembler *prompt.Assembler, recorder storage.Recorder) *Controller {
	if assembler == nil {
		assembler = prompt.NewAssembler("")
	}
	return &Controller{
		store:     store,
		client:    client,
		assembler: assembler,
		recorder:  recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start activates a session for userID and loads its stored history.
func (c *Controller) Start(userID string) (State, Notice, error) {
	if strings.TrimSpace(userID) == "" {
		return State{}, Notice{}, ErrEmptyUserID
	}
	st := State{UserID: userID, History: c.store.Load(userID)}
	if len(st.History) > 0 {
		return st, Notice{Level: LevelSuccess, Text: NoticeLoaded}, nil
	}
	return st, Notice{Level: LevelInfo, Text: NoticeNewSession}, nil
}

// Ask runs one turn. On a model error the returned state is st and the error
// is a *TurnError. A save failure after a successful answer still returns the
// extended state and the reply, together with an error wrapping ErrPersist.
func (c *Controller) Ask(ctx context.Context, st State, query string) (State, string, error) {
	if !st.Active() {
		return st, "", ErrNotActive
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return st, "", ErrEmptyQuery
	}

	msgs := c.assembler.Assemble(history.ToMessages(st.History), query)
	resp, err := c.client.Generate(ctx, msgs)
	if err != nil {
		log.Printf("model request failed for %q: %v", st.UserID, err)
		c.record(storage.Event{UserID: st.UserID, Query: query, Error: err.Error()})
		return st, "", &TurnError{Err: err}
	}

	log.Printf("LLM response for %q [model=%s, tokens: prompt=%d, completion=%d, total=%d]",
		st.UserID, resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)
	c.record(storage.Event{
		UserID:           st.UserID,
		Query:            query,
		Reply:            resp.Content,
		Model:            resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	})

	next := State{UserID: st.UserID, History: history.Append(st.History, chatlog.Turn{User: query, AI: resp.Content})}
	if err := c.store.Save(next.UserID, next.History); err != nil {
		log.Printf("failed to save chat log for %q: %v", next.UserID, err)
		return next, resp.Content, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return next, resp.Content, nil
}

// Clear deletes the stored history. The in-memory history is reset only when
// something was actually deleted.
func (c *Controller) Clear(st State) (State, Notice, error) {
	if !st.Active() {
		return st, Notice{}, ErrNotActive
	}
	err := c.store.Clear(st.UserID)
	switch {
	case err == nil:
		return State{UserID: st.UserID, History: []chatlog.Turn{}}, Notice{Level: LevelSuccess, Text: NoticeCleared}, nil
	case errors.Is(err, chatlog.ErrNotFound):
		return st, Notice{Level: LevelWarning, Text: NoticeNothingToClear}, nil
	default:
		return st, Notice{}, err
	}
}

// Export renders the persisted history for download.
func (c *Controller) Export(st State) (Export, bool) {
	if !st.Active() {
		return Export{}, false
	}
	text, ok := c.store.Export(st.UserID)
	if !ok {
		return Export{}, false
	}
	return Export{FileName: chatlog.ExportFileName(st.UserID), Data: []byte(text)}, true
}

func (c *Controller) record(ev storage.Event) {
	if c.recorder == nil {
		return
	}
	ev.Timestamp = c.now()
	if err := c.recorder.AppendInteraction(ev); err != nil {
		log.Printf("failed to record interaction: %v", err)
	}
}
