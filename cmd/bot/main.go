package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ds-tutor/internal/app"
	"ds-tutor/internal/config"
	"ds-tutor/internal/scheduler"
	"ds-tutor/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.TelegramBotToken == "" {
		log.Fatalf("failed to parse config: TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init tutor: %v", err)
	}
	defer a.Close()

	bot, err := telegram.New(cfg.TelegramBotToken, a.Controller, telegram.Options{
		ParseMode:   cfg.MessageParseMode,
		TypingDelay: cfg.TypingDelay,
		AdminUserID: cfg.AdminUserID,
		Recorder:    a.Recorder,
	})
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	if cfg.AdminUserID != 0 && a.Recorder != nil {
		sch := scheduler.New(cfg.ReportSchedule)
		sch.SetReportFunction(bot.SendDailyReport)
		if err := sch.Start(); err != nil {
			log.Printf("failed to start scheduler: %v", err)
		} else {
			defer sch.Stop()
		}
	}

	log.Printf("Data Science Tutor bot started (provider=%s, store=%s)", cfg.LLMProvider, cfg.ChatStoreBackend)
	bot.Start(ctx)
}
