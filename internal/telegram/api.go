package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// sender is the part of the Bot API the tutor bot needs: messages, edits of
// the placeholder reply and transcript documents all go through Send.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}
