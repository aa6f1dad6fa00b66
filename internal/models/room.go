package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the role a user holds inside a room
type Role int

const (
	RoleMember Role = iota
	RoleOwner
)

// ParseRole converts the stored role name into a Role
func ParseRole(s string) (Role, error) {
	switch s {
	case "owner":
		return RoleOwner, nil
	case "member":
		return RoleMember, nil
	}
	return RoleMember, fmt.Errorf("unknown role %q", s)
}

// String returns the role name as stored in room_members.role
func (r Role) String() string {
	if r == RoleOwner {
		return "owner"
	}
	return "member"
}

// MarshalText encodes the role by name
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// IsOwner returns true for the owner role
func (r Role) IsOwner() bool {
	return r == RoleOwner
}

// Room represents a group whose members coordinate scheduling
type Room struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	InviteCode     string    `json:"invite_code" db:"invite_code"`
	CreatedByID    uuid.UUID `json:"created_by" db:"created_by"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// InvitePath returns the relative URL that redeems the room's invite code
func (r *Room) InvitePath() string {
	return "/join/" + r.InviteCode
}

// Membership is the (room, user) pair with its display name and role
type Membership struct {
	RoomID      uuid.UUID `json:"room_id" db:"room_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Role        Role      `json:"role" db:"role"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CanManage reports whether the member may perform owner-only mutations:
// removing members, deleting candidates, confirming and un-confirming events.
func (m *Membership) CanManage() bool {
	return m != nil && m.Role.IsOwner()
}
