// Package memory implements the repository interfaces without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

// Store keeps every table in memory and performs the same cascades and
// checks as the stored procedures. It backs "serve --memory" and tests.
type Store struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	resets     map[string]*models.PasswordReset
	rooms      map[uuid.UUID]*models.Room
	members    []*models.Membership
	candidates map[uuid.UUID]*models.Candidate
	responses  []*models.Response
	guests     []*models.Guest
	events     map[uuid.UUID]*models.Event
}

// New returns an empty store
func New() *Store {
	return &Store{
		users:      make(map[uuid.UUID]*models.User),
		resets:     make(map[string]*models.PasswordReset),
		rooms:      make(map[uuid.UUID]*models.Room),
		candidates: make(map[uuid.UUID]*models.Candidate),
		events:     make(map[uuid.UUID]*models.Event),
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func (s *Store) Users() repository.UserRepository           { return userRepo{s} }
func (s *Store) Rooms() repository.RoomRepository           { return roomRepo{s} }
func (s *Store) Candidates() repository.CandidateRepository { return candidateRepo{s} }
func (s *Store) Responses() repository.ResponseRepository   { return responseRepo{s} }
func (s *Store) Guests() repository.GuestRepository         { return guestRepo{s} }
func (s *Store) Events() repository.EventRepository         { return eventRepo{s} }
func (s *Store) Procedures() repository.Procedures          { return procedures{s} }

// EventCount returns the number of confirmed events in all rooms
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// --- users ---

type userRepo struct{ *Store }

func (m userRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, repository.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = clone(u)
	return u, nil
}

func (m userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (m userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.SessionVersion++
	return nil
}

func (m userRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.DisplayName = name
	return nil
}

func (m userRepo) BumpSessionVersion(ctx context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.SessionVersion++
	return u.SessionVersion, nil
}

func (m userRepo) CreatePasswordReset(ctx context.Context, r *models.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[r.TokenHash] = clone(r)
	return nil
}

func (m userRepo) ResetPassword(ctx context.Context, hash, passwordHash string, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[hash]
	if !ok || !r.IsUsable(now) {
		return uuid.Nil, repository.ErrNotFound
	}
	u, ok := m.users[r.UserID]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	r.UsedAt = &now
	u.PasswordHash = passwordHash
	u.SessionVersion++
	return u.ID, nil
}

// --- rooms ---

type roomRepo struct{ *Store }

func (m roomRepo) Create(ctx context.Context, room *models.Room, owner *models.Membership) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.InviteCode == room.InviteCode {
			return nil, repository.ErrDuplicate
		}
	}
	room.ID = uuid.New()
	room.CreatedAt = time.Now()
	m.rooms[room.ID] = clone(room)
	owner.RoomID = room.ID
	owner.Role = models.RoleOwner
	m.members = append(m.members, clone(owner))
	return room, nil
}

func (m roomRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r), nil
}

func (m roomRepo) find(pred func(*models.Room) bool) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if pred(r) {
			return clone(r), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m roomRepo) GetByInviteCode(ctx context.Context, code string) (*models.Room, error) {
	return m.find(func(r *models.Room) bool { return r.InviteCode == code })
}

func (m roomRepo) GetByTelegramChat(ctx context.Context, chatID int64) (*models.Room, error) {
	return m.find(func(r *models.Room) bool { return r.TelegramChatID != nil && *r.TelegramChatID == chatID })
}

func (m roomRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Room
	for _, mem := range m.members {
		if mem.UserID == userID {
			out = append(out, clone(m.rooms[mem.RoomID]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m roomRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Name = name
	return nil
}

func (m roomRepo) SetTelegramChat(ctx context.Context, id uuid.UUID, chatID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return repository.ErrNotFound
	}
	if chatID != nil {
		for _, other := range m.rooms {
			if other.ID != id && other.TelegramChatID != nil && *other.TelegramChatID == *chatID {
				return repository.ErrDuplicate
			}
		}
	}
	r.TelegramChatID = chatID
	return nil
}

func (m roomRepo) Members(ctx context.Context, roomID uuid.UUID) ([]*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Membership
	for _, mem := range m.members {
		if mem.RoomID == roomID {
			out = append(out, clone(mem))
		}
	}
	return out, nil
}

func (m roomRepo) GetMembership(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.RoomID == roomID && mem.UserID == userID {
			return clone(mem), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m roomRepo) UpdateMemberDisplayName(ctx context.Context, roomID, userID uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.RoomID == roomID && mem.UserID == userID {
			mem.DisplayName = name
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m roomRepo) UpdateDisplayNameEverywhere(ctx context.Context, userID uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.UserID == userID {
			mem.DisplayName = name
		}
	}
	return nil
}

func (m roomRepo) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mem := range m.members {
		if mem.RoomID == roomID && mem.UserID == userID && !mem.Role.IsOwner() {
			m.members = append(m.members[:i], m.members[i+1:]...)
			kept := m.responses[:0]
			for _, r := range m.responses {
				if r.RoomID != roomID || r.UserID != userID {
					kept = append(kept, r)
				}
			}
			m.responses = kept
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- candidates ---

type candidateRepo struct{ *Store }

func (m candidateRepo) Create(ctx context.Context, c *models.Candidate) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.candidates[c.ID] = clone(c)
	return c, nil
}

func (m candidateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(c), nil
}

func (m candidateRepo) ListUpcoming(ctx context.Context, roomID uuid.UUID, from time.Time) ([]*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Candidate
	for _, c := range m.candidates {
		if c.RoomID == roomID && !c.Date.Before(from) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// --- responses ---

type responseRepo struct{ *Store }

func (m responseRepo) Upsert(ctx context.Context, r *models.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.UpdatedAt = time.Now()
	for _, existing := range m.responses {
		if existing.CandidateID == r.CandidateID && existing.UserID == r.UserID {
			existing.Status = r.Status
			existing.UpdatedAt = r.UpdatedAt
			return nil
		}
	}
	m.responses = append(m.responses, clone(r))
	return nil
}

func (m responseRepo) ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Response, error) {
	return m.list(func(r *models.Response) bool { return r.RoomID == roomID }), nil
}

func (m responseRepo) ListForCandidate(ctx context.Context, roomID, candidateID uuid.UUID) ([]*models.Response, error) {
	return m.list(func(r *models.Response) bool { return r.RoomID == roomID && r.CandidateID == candidateID }), nil
}

func (m responseRepo) list(pred func(*models.Response) bool) []*models.Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Response
	for _, r := range m.responses {
		if pred(r) {
			out = append(out, clone(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}

// --- guests ---

type guestRepo struct{ *Store }

func (m guestRepo) Create(ctx context.Context, g *models.Guest) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	m.guests = append(m.guests, clone(g))
	return g, nil
}

func (m guestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.guests {
		if g.ID == id {
			return clone(g), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m guestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.guests {
		if g.ID == id {
			m.guests = append(m.guests[:i], m.guests[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m guestRepo) ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Guest, error) {
	return m.list(func(g *models.Guest) bool { return g.RoomID == roomID }), nil
}

func (m guestRepo) ListForCandidate(ctx context.Context, roomID, candidateID uuid.UUID) ([]*models.Guest, error) {
	return m.list(func(g *models.Guest) bool { return g.RoomID == roomID && g.AttachedTo(candidateID) }), nil
}

func (m guestRepo) list(pred func(*models.Guest) bool) []*models.Guest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Guest
	for _, g := range m.guests {
		if pred(g) {
			out = append(out, clone(g))
		}
	}
	return out
}

// --- events ---

type eventRepo struct{ *Store }

func (m eventRepo) withMin(e *models.Event) *models.Event {
	out := clone(e)
	if c, ok := m.candidates[e.CandidateID]; ok {
		out.MinPlayers = c.MinPlayers
	}
	return out
}

func (m eventRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.withMin(e), nil
}

func (m eventRepo) GetByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.CandidateID == candidateID {
			return m.withMin(e), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m eventRepo) ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Event
	for _, e := range m.events {
		if e.RoomID == roomID {
			out = append(out, m.withMin(e))
		}
	}
	return out, nil
}

func (m eventRepo) UpdateDetails(ctx context.Context, id uuid.UUID, startsAt *time.Time, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	if (e.StartsAt == nil) != (startsAt == nil) || (startsAt != nil && !e.StartsAt.Equal(*startsAt)) {
		e.RemindedAt = nil
	}
	e.StartsAt = startsAt
	e.Note = note
	return nil
}

func (m eventRepo) ListDueReminders(ctx context.Context, now, until time.Time) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Event
	for _, e := range m.events {
		if e.RemindedAt == nil && e.StartsAt != nil && e.StartsAt.After(now) && !e.StartsAt.After(until) {
			out = append(out, m.withMin(e))
		}
	}
	return out, nil
}

func (m eventRepo) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.RemindedAt = &at
	return nil
}

// --- procedures ---

type procedures struct{ *Store }

func (m procedures) isOwner(roomID, userID uuid.UUID) bool {
	for _, mem := range m.members {
		if mem.RoomID == roomID && mem.UserID == userID {
			return mem.Role.IsOwner()
		}
	}
	return false
}

func (m procedures) JoinRoomByInvite(ctx context.Context, code string, userID uuid.UUID, name string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.InviteCode != code {
			continue
		}
		for _, mem := range m.members {
			if mem.RoomID == r.ID && mem.UserID == userID {
				return r.ID, nil
			}
		}
		m.members = append(m.members, &models.Membership{RoomID: r.ID, UserID: userID, DisplayName: name, Role: models.RoleMember})
		return r.ID, nil
	}
	return uuid.Nil, &repository.Error{Kind: repository.ErrInvalidInviteCode, Message: "invalid invite code"}
}

func (m procedures) ConfirmCandidate(ctx context.Context, candidateID, userID uuid.UUID, startsAt *time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[candidateID]
	if !ok {
		return uuid.Nil, &repository.Error{Kind: repository.ErrNotFound, Message: "candidate not found"}
	}
	if !m.isOwner(c.RoomID, userID) {
		return uuid.Nil, &repository.Error{Kind: repository.ErrForbidden, Message: "only the room owner can confirm a candidate"}
	}
	if c.IsConfirmed {
		return uuid.Nil, &repository.Error{Kind: repository.ErrAlreadyConfirmed, Message: "candidate is already confirmed"}
	}
	yes := 0
	for _, r := range m.responses {
		if r.CandidateID == c.ID && r.Status == models.ResponseYes {
			yes++
		}
	}
	for _, g := range m.guests {
		if g.AttachedTo(c.ID) {
			yes++
		}
	}
	if yes < c.MinPlayers {
		return uuid.Nil, &repository.Error{Kind: repository.ErrQuorumNotReached, Message: fmt.Sprintf("quorum not reached (%d of %d)", yes, c.MinPlayers)}
	}
	e := &models.Event{
		ID:          uuid.New(),
		RoomID:      c.RoomID,
		CandidateID: c.ID,
		Date:        c.Date,
		StartsAt:    startsAt,
		CreatedByID: userID,
		ConfirmedAt: time.Now(),
	}
	m.events[e.ID] = e
	c.IsConfirmed = true
	return e.ID, nil
}

func (m procedures) DeleteCandidate(ctx context.Context, candidateID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[candidateID]
	if !ok {
		return &repository.Error{Kind: repository.ErrNotFound, Message: "candidate not found"}
	}
	if !m.isOwner(c.RoomID, userID) {
		return &repository.Error{Kind: repository.ErrForbidden, Message: "only the room owner can delete a candidate"}
	}
	delete(m.candidates, candidateID)
	for id, e := range m.events {
		if e.CandidateID == candidateID {
			delete(m.events, id)
		}
	}
	responses := m.responses[:0]
	for _, r := range m.responses {
		if r.CandidateID != candidateID {
			responses = append(responses, r)
		}
	}
	m.responses = responses
	guests := m.guests[:0]
	for _, g := range m.guests {
		if !g.AttachedTo(candidateID) {
			guests = append(guests, g)
		}
	}
	m.guests = guests
	return nil
}

func (m procedures) DeleteEvent(ctx context.Context, eventID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return &repository.Error{Kind: repository.ErrNotFound, Message: "event not found"}
	}
	if !m.isOwner(e.RoomID, userID) {
		return &repository.Error{Kind: repository.ErrForbidden, Message: "only the room owner can cancel an event"}
	}
	delete(m.events, eventID)
	if c, ok := m.candidates[e.CandidateID]; ok {
		c.IsConfirmed = false
	}
	return nil
}
