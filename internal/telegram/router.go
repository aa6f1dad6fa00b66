package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is the part of the bot API command handlers reply through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	handlers map[string]CommandHandler
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(ctx context.Context, bot Sender, message *tgbotapi.Message, args []string) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// HandleMessage dispatches a command message to its handler
func (r *Router) HandleMessage(ctx context.Context, bot Sender, message *tgbotapi.Message) {
	// Only process text commands
	if message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	fields := logrus.Fields{
		"command": command,
		"chat_id": message.Chat.ID,
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
	}
	r.logger.WithFields(fields).Info("Received command")

	handler, exists := r.handlers[command]
	if !exists {
		r.logger.WithFields(fields).Warn("Unknown command")
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /help to see available commands."))
		return
	}

	if err := handler.Handle(ctx, bot, message, args); err != nil {
		r.logger.WithFields(fields).WithError(err).Error("Command handler failed")
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "An error occurred while processing your command. Please try again."))
	}
}
