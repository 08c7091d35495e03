package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"ds-tutor/internal/app"
	"ds-tutor/internal/config"
	"ds-tutor/internal/terminal"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	// keep diagnostics out of the interactive screen
	if f, err := openLogFile(filepath.Join(filepath.Dir(cfg.LogFilePath), "tutor.log")); err == nil {
		log.SetOutput(f)
		defer f.Close()
	} else {
		log.Printf("logging to stderr: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init tutor: %v", err)
	}
	defer a.Close()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	repl := terminal.New(a.Controller, line, os.Stdout, terminal.Options{
		Renderer:    terminal.NewMarkdownRenderer(80),
		TypingDelay: cfg.TypingDelay,
	})
	if err := repl.Run(ctx); err != nil {
		log.Printf("tutor stopped: %v", err)
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
