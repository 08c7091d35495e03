// Package app wires configuration into a ready session controller.
package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"ds-tutor/internal/chatlog"
	"ds-tutor/internal/config"
	"ds-tutor/internal/llm"
	"ds-tutor/internal/prompt"
	"ds-tutor/internal/session"
	"ds-tutor/internal/storage"
)

type App struct {
	Controller *session.Controller
	Recorder   storage.Recorder

	closers []io.Closer
}

// New builds the log store, interaction recorder and model client selected by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.Printf("failed to init file recorder: %v", err)
		} else {
			a.Recorder = fr
		}
	}

	client, err := llm.NewFactory(cfg).CreateClient(ctx, string(cfg.LLMProvider), cfg.Model())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	if c, ok := client.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	assembler := prompt.NewAssembler(prompt.LoadSystemInstruction(cfg.SystemPromptPath))
	a.Controller = session.New(store, client, assembler, a.Recorder)
	return a, nil
}

func newStore(cfg *config.Config) (chatlog.Store, error) {
	switch cfg.ChatStoreBackend {
	case config.BackendSQLite:
		s, err := chatlog.NewSQLiteStore(cfg.ChatSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to init sqlite chat store: %w", err)
		}
		return s, nil
	default:
		s, err := chatlog.NewFileStore(cfg.ChatStorage)
		if err != nil {
			return nil, fmt.Errorf("failed to init file chat store: %w", err)
		}
		return s, nil
	}
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
