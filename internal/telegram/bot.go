package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ds-tutor/internal/analytics"
	"ds-tutor/internal/pacer"
	"ds-tutor/internal/session"
	"ds-tutor/internal/storage"
)

const (
	clearCmd  = "clear_history"
	exportCmd = "export_history"

	// words revealed per message edit
	revealStep = 8
	// Telegram rejects texts over 4096 characters
	maxMessageLen = 4000
	// Telegram throttles frequent edits of one chat
	defaultEditInterval = time.Second
)

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	ctrl        *session.Controller
	recorder    storage.Recorder
	parseMode   string
	typingDelay  time.Duration
	editInterval time.Duration
	adminUserID  int64

	mu       sync.Mutex
	sessions map[int64]session.State
}

type Options struct {
	ParseMode   string
	TypingDelay time.Duration
	AdminUserID int64
	Recorder    storage.Recorder
}

func New(botToken string, ctrl *session.Controller, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	log.Printf("authorized on telegram account @%s", api.Self.UserName)
	b := newBot(botAPISender{api: api}, ctrl, opts)
	b.api = api
	return b, nil
}

func newBot(s sender, ctrl *session.Controller, opts Options) *Bot {
	return &Bot{
		s:            s,
		ctrl:         ctrl,
		recorder:     opts.Recorder,
		parseMode:    opts.ParseMode,
		typingDelay:  opts.TypingDelay,
		editInterval: defaultEditInterval,
		adminUserID:  opts.AdminUserID,
		sessions:     make(map[int64]session.State),
	}
}

// Start consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) state(chatID int64) session.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

func (b *Bot) setState(chatID int64, st session.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = st
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		b.handleCommand(chatID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if !b.state(chatID).Active() {
		// the first plain message of a chat is the username
		b.startSession(chatID, text)
		return
	}
	b.ask(ctx, chatID, text)
}

func (b *Bot) handleCommand(chatID int64, cmd, args string) {
	switch cmd {
	case "start":
		if args != "" {
			b.startSession(chatID, args)
			return
		}
		if st := b.state(chatID); st.Active() {
			b.sendMessage(chatID, fmt.Sprintf("You are chatting as %s. Ask me anything about Data Science!", st.UserID))
			return
		}
		b.sendMessage(chatID, "Data Science Tutor\n\nEnter your username:")
	case "clear":
		b.clear(chatID)
	case "export":
		b.export(chatID)
	case "help":
		b.sendMessage(chatID, helpText)
	default:
		b.sendMessage(chatID, "Unknown command. "+helpText)
	}
}

const helpText = `I can help with:
- Machine Learning & AI
- Python for Data Science
- Data Visualization
- Deep Learning Concepts

Commands:
/start <username> - start or resume your chat
/clear - erase your saved chat history
/export - download your chat history`

func (b *Bot) startSession(chatID int64, userID string) {
	st, notice, err := b.ctrl.Start(userID)
	if err != nil {
		b.sendMessage(chatID, "Please provide a username.")
		return
	}
	b.setState(chatID, st)
	log.Printf("chat %d started session for %q (%d turns)", chatID, st.UserID, len(st.History))
	b.sendMessage(chatID, fmt.Sprintf("Hello, %s! %s\n\nTip: Ask me anything about data science!", st.UserID, notice.Text))
}

func (b *Bot) ask(ctx context.Context, chatID int64, query string) {
	st := b.state(chatID)
	placeholder, err := b.s.Send(tgbotapi.NewMessage(chatID, "Thinking..."))
	if err != nil {
		log.Printf("failed to send placeholder: %v", err)
	}

	next, reply, err := b.ctrl.Ask(ctx, st, query)
	var turnErr *session.TurnError
	switch {
	case errors.As(err, &turnErr):
		b.replace(chatID, placeholder.MessageID, "Error: "+turnErr.Error(), false)
		return
	case err != nil && !errors.Is(err, session.ErrPersist):
		b.replace(chatID, placeholder.MessageID, "Error: "+err.Error(), false)
		return
	}
	b.setState(chatID, next)

	chunks := splitMessage(reply, maxMessageLen)
	if placeholder.MessageID != 0 {
		// only the first chunk is paced; the rest follow as new messages
		first := chunks[0]
		lastEdit := time.Now()
		_ = pacer.Reveal(ctx, first, b.typingDelay, revealStep, func(partial string) {
			if partial == first || time.Since(lastEdit) < b.editInterval {
				return
			}
			lastEdit = time.Now()
			b.edit(chatID, placeholder.MessageID, partial, "")
		})
	}
	b.replace(chatID, placeholder.MessageID, chunks[0], len(chunks) == 1)
	for i, chunk := range chunks[1:] {
		b.sendFormatted(chatID, chunk, i == len(chunks)-2)
	}

	if err != nil {
		b.sendMessage(chatID, "Warning: "+err.Error())
	}
}

func (b *Bot) clear(chatID int64) {
	st := b.state(chatID)
	if !st.Active() {
		b.sendMessage(chatID, "Enter your username first.")
		return
	}
	next, notice, err := b.ctrl.Clear(st)
	if err != nil {
		b.sendMessage(chatID, "Error: "+err.Error())
		return
	}
	b.setState(chatID, next)
	b.sendMessage(chatID, notice.Text)
}

func (b *Bot) export(chatID int64) {
	ex, ok := b.ctrl.Export(b.state(chatID))
	if !ok {
		b.sendMessage(chatID, session.NoticeNoHistory)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: ex.FileName, Bytes: ex.Data})
	if _, err := b.s.Send(doc); err != nil {
		log.Printf("failed to send export: %v", err)
		b.sendMessage(chatID, "Error: could not send chat history.")
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	switch cb.Data {
	case clearCmd:
		b.clear(cb.Message.Chat.ID)
	case exportCmd:
		b.export(cb.Message.Chat.ID)
	}
}

// replace shows the final text in place of the placeholder, attaching the
// history keyboard. Formatted text falls back to plain when Telegram rejects it.
func (b *Bot) replace(chatID int64, messageID int, text string, withKeyboard bool) {
	if messageID == 0 {
		b.sendFormatted(chatID, text, withKeyboard)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = b.parseMode
	if withKeyboard {
		kb := historyKeyboard()
		edit.ReplyMarkup = &kb
	}
	if _, err := b.s.Send(edit); err != nil && b.parseMode != "" {
		edit.ParseMode = ""
		if _, err := b.s.Send(edit); err != nil {
			log.Printf("failed to edit message: %v", err)
		}
	}
}

// sendFormatted sends text as a new message with the same parse-mode fallback
// as replace.
func (b *Bot) sendFormatted(chatID int64, text string, withKeyboard bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	if withKeyboard {
		msg.ReplyMarkup = historyKeyboard()
	}
	if _, err := b.s.Send(msg); err != nil && b.parseMode != "" {
		msg.ParseMode = ""
		if _, err := b.s.Send(msg); err != nil {
			log.Printf("failed to send message: %v", err)
		}
	}
}

// splitMessage cuts text into parts of at most maxLen bytes, preferring line
// breaks, then spaces. Bytes never undercount Telegram's UTF-16 length.
func splitMessage(text string, maxLen int) []string {
	var parts []string
	for len(text) > maxLen {
		cut := strings.LastIndex(text[:maxLen], "\n")
		if cut <= 0 {
			cut = strings.LastIndexAny(text[:maxLen], " \t")
		}
		if cut <= 0 {
			cut = maxLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		if part := strings.TrimRight(text[:cut], " \t\n"); part != "" {
			parts = append(parts, part)
		}
		text = strings.TrimLeft(text[cut:], " \t\n")
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

func (b *Bot) edit(chatID int64, messageID int, text, parseMode string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = parseMode
	if _, err := b.s.Send(edit); err != nil {
		log.Printf("failed to edit message: %v", err)
	}
}

func historyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Clear chat history", clearCmd),
			tgbotapi.NewInlineKeyboardButtonData("Download chat history", exportCmd),
		),
	)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

// SendDailyReport sends today's usage statistics to the admin chat.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	if b.adminUserID == 0 || b.recorder == nil {
		return nil
	}
	events, err := b.recorder.LoadInteractions()
	if err != nil {
		return fmt.Errorf("load interactions: %w", err)
	}
	stats := analytics.AnalyzeDailyLogs(events, time.Now().UTC())
	if _, err := b.s.Send(tgbotapi.NewMessage(b.adminUserID, stats.GenerateReportSummary())); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}
