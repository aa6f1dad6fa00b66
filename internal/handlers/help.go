package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/telegram"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	helpText := `rollcall commands

/link <invite code> - connect this chat to a room
/board - show upcoming dates and how many are in
/help - show this message

Answers, guests and confirmations are managed on the web board.`

	if _, err := bot.Send(tgbotapi.NewMessage(message.Chat.ID, helpText)); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithField("chat_id", message.Chat.ID).Info("Sent help message")
	return nil
}
