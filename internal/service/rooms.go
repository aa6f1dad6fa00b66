package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

// MaxRoomNameLength bounds room names
const MaxRoomNameLength = 60

const inviteCodeLength = 10

// RoomListing is one entry of the caller's room list
type RoomListing struct {
	Room      *models.Room
	Role      models.Role
	InviteURL string
}

// membership returns the caller's membership in roomID
func (s *Service) membership(ctx context.Context, sess auth.Session, roomID uuid.UUID) (*models.Membership, error) {
	if sess.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	m, err := s.Rooms.GetMembership(ctx, roomID, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return m, nil
}

// requireOwner is membership plus the owner-only check
func (s *Service) requireOwner(ctx context.Context, sess auth.Session, roomID uuid.UUID) (*models.Membership, error) {
	m, err := s.membership(ctx, sess, roomID)
	if err != nil {
		return nil, err
	}
	if !m.CanManage() {
		return nil, ErrForbidden
	}
	return m, nil
}

func normalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "room name is required")
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", invalid("name", "room name must be at most %d characters", MaxRoomNameLength)
	}
	return name, nil
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength]
}

// CreateRoom creates a room owned by the caller
func (s *Service) CreateRoom(ctx context.Context, sess auth.Session, name string) (*models.Room, error) {
	user, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	name, err = normalizeRoomName(name)
	if err != nil {
		return nil, err
	}

	// Invite codes are random; retry on the rare collision
	for attempt := 0; attempt < 3; attempt++ {
		room := &models.Room{
			Name:        name,
			InviteCode:  newInviteCode(),
			CreatedByID: user.ID,
		}
		owner := &models.Membership{UserID: user.ID, DisplayName: user.Name()}

		created, err := s.Rooms.Create(ctx, room, owner)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"room_id": created.ID,
			"user_id": user.ID,
		}).Info("Room created")
		return created, nil
	}
	return nil, errors.New("failed to create room: could not allocate an invite code")
}

// ListRooms returns the rooms the caller belongs to, newest first
func (s *Service) ListRooms(ctx context.Context, sess auth.Session) ([]RoomListing, error) {
	if sess.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	rooms, err := s.Rooms.ListForUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	listings := make([]RoomListing, 0, len(rooms))
	for _, room := range rooms {
		role := models.RoleMember
		if m, err := s.Rooms.GetMembership(ctx, room.ID, sess.UserID); err == nil {
			role = m.Role
		}
		listings = append(listings, RoomListing{
			Room:      room,
			Role:      role,
			InviteURL: s.link(room.InvitePath()),
		})
	}
	return listings, nil
}

// JoinRoom redeems an invite code. Joining a room the caller already belongs
// to succeeds.
func (s *Service) JoinRoom(ctx context.Context, sess auth.Session, code string) (uuid.UUID, error) {
	user, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return uuid.Nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return uuid.Nil, invalid("code", "invite code is required")
	}

	roomID, err := s.Procedures.JoinRoomByInvite(ctx, code, user.ID, user.Name())
	if errors.Is(err, repository.ErrDuplicate) {
		room, lookupErr := s.Rooms.GetByInviteCode(ctx, code)
		if lookupErr != nil {
			return uuid.Nil, fmt.Errorf("failed to join room: %w", lookupErr)
		}
		return room.ID, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to join room: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": user.ID,
	}).Info("User joined room")
	return roomID, nil
}

// RenameRoom changes the room name; owner only
func (s *Service) RenameRoom(ctx context.Context, sess auth.Session, roomID uuid.UUID, name string) error {
	if _, err := s.requireOwner(ctx, sess, roomID); err != nil {
		return err
	}
	name, err := normalizeRoomName(name)
	if err != nil {
		return err
	}
	if err := s.Rooms.Rename(ctx, roomID, name); err != nil {
		return fmt.Errorf("failed to rename room: %w", err)
	}
	return nil
}

// RemoveMember removes a member and their responses from the room; owner
// only. Owners cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, sess auth.Session, roomID, userID uuid.UUID) error {
	if _, err := s.requireOwner(ctx, sess, roomID); err != nil {
		return err
	}

	target, err := s.Rooms.GetMembership(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("user_id", "that user is not a member of this room")
	}
	if err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}
	if target.CanManage() {
		return invalid("user_id", "the room owner cannot be removed")
	}

	if err := s.Rooms.RemoveMember(ctx, roomID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": userID,
		"by":      sess.UserID,
	}).Info("Member removed")
	return nil
}

// SetTelegramChat links the room to a Telegram chat ID, or unlinks it when
// chatID is empty; owner only
func (s *Service) SetTelegramChat(ctx context.Context, sess auth.Session, roomID uuid.UUID, chatID string) error {
	if _, err := s.requireOwner(ctx, sess, roomID); err != nil {
		return err
	}

	var value *int64
	if chatID = strings.TrimSpace(chatID); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil || id == 0 {
			return invalid("chat_id", "telegram chat ID must be a non-zero integer")
		}
		value = &id
	}

	err := s.Rooms.SetTelegramChat(ctx, roomID, value)
	if errors.Is(err, repository.ErrDuplicate) {
		return invalid("chat_id", "that telegram chat is already linked to another room")
	}
	if err != nil {
		return fmt.Errorf("failed to set telegram chat: %w", err)
	}
	return nil
}

// LinkChatByInvite links a Telegram chat to the room holding the invite code.
// Knowing the code is enough for a room with no chat yet. Once a chat is
// linked only the owner can move it, through SetTelegramChat.
func (s *Service) LinkChatByInvite(ctx context.Context, code string, chatID int64) (*models.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code", "invite code is required")
	}

	room, err := s.Rooms.GetByInviteCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrInvalidInviteCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	if room.TelegramChatID != nil {
		if *room.TelegramChatID == chatID {
			return room, nil
		}
		return nil, fmt.Errorf("room %s is linked to another chat: %w", room.ID, ErrForbidden)
	}

	err = s.Rooms.SetTelegramChat(ctx, room.ID, &chatID)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, invalid("chat_id", "this chat is already linked to another room")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to link chat: %w", err)
	}

	room.TelegramChatID = &chatID
	s.logger.WithFields(logrus.Fields{
		"room_id": room.ID,
		"chat_id": chatID,
	}).Info("Telegram chat linked")
	return room, nil
}
