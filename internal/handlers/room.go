package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
	"github.com/Kerhoff/rollcall/internal/service"
	"github.com/Kerhoff/rollcall/internal/telegram"
)

// RoomService is the part of the service the chat commands use
type RoomService interface {
	LinkChatByInvite(ctx context.Context, code string, chatID int64) (*models.Room, error)
	ChatDigest(ctx context.Context, chatID int64) (*service.ChatDigest, error)
}

func reply(bot telegram.Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := bot.Send(msg)
	return err
}

// LinkHandler handles /link <invite code>
type LinkHandler struct {
	svc    RoomService
	logger *logrus.Logger
}

// NewLinkHandler creates a new link command handler
func NewLinkHandler(svc RoomService, logger *logrus.Logger) *LinkHandler {
	return &LinkHandler{svc: svc, logger: logger}
}

// Handle links the chat the command was sent from
func (h *LinkHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	chatID := message.Chat.ID
	if len(args) != 1 {
		return reply(bot, chatID, "Usage: /link <invite code>")
	}

	room, err := h.svc.LinkChatByInvite(ctx, args[0], chatID)
	var ve *service.ValidationError
	switch {
	case errors.Is(err, repository.ErrInvalidInviteCode):
		return reply(bot, chatID, "That invite code does not match any room.")
	case errors.Is(err, service.ErrForbidden):
		return reply(bot, chatID, "This room is already linked to another chat. The room owner can change it on the room page.")
	case errors.As(err, &ve):
		return reply(bot, chatID, service.UserMessage(err))
	case err != nil:
		return fmt.Errorf("failed to link chat: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"room_id": room.ID,
	}).Info("Chat linked to room")
	return reply(bot, chatID, fmt.Sprintf("This chat is now linked to %q. Confirmed dates will be posted here.", room.Name))
}

// BoardHandler handles /board
type BoardHandler struct {
	svc    RoomService
	logger *logrus.Logger
}

// NewBoardHandler creates a new board command handler
func NewBoardHandler(svc RoomService, logger *logrus.Logger) *BoardHandler {
	return &BoardHandler{svc: svc, logger: logger}
}

// Handle replies with one line per upcoming candidate
func (h *BoardHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	chatID := message.Chat.ID

	digest, err := h.svc.ChatDigest(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return reply(bot, chatID, "This chat is not linked to a room yet. Use /link <invite code>.")
	}
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}

	return reply(bot, chatID, FormatDigest(digest))
}

// FormatDigest renders the board summary as plain text
func FormatDigest(d *service.ChatDigest) string {
	if len(d.Cards) == 0 {
		return fmt.Sprintf("%s\nNo upcoming dates.", d.Room.Name)
	}

	lines := []string{d.Room.Name}
	for _, card := range d.Cards {
		c, sum := card.Candidate, card.Summary
		state := fmt.Sprintf("needs %d more", sum.Remaining())
		switch {
		case c.IsConfirmed:
			state = "confirmed"
		case sum.QuorumReached:
			state = "reached"
		}
		lines = append(lines, fmt.Sprintf("%s: %d/%d in, %d maybe - %s",
			c.Date.Format("2006-01-02 (Mon)"), sum.YesTotal, sum.Minimum, sum.Maybe, state))
	}
	return strings.Join(lines, "\n")
}
