package service

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// NotifyService sends run reports to a Telegram chat. A nil
// *NotifyService is valid and does nothing, so callers never have to
// guard the optional notifier.
type NotifyService struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewNotifyService(token string, chatID int64, logger *zap.Logger) (*NotifyService, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &NotifyService{api: api, chatID: chatID, logger: logger}, nil
}

// Notify sends text to the configured chat. Send failures are logged,
// never escalated: a run whose export succeeded must not fail over a
// notification.
func (n *NotifyService) Notify(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("telegram notification failed", zap.Error(err))
	}
}
