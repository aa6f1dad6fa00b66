package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

func TestConfirmCandidateRequiresQuorum(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, owner, members := h.roomWith(t, "Mia", "Noah")

	if err := h.svc.SetTelegramChat(ctx, owner, room.ID, "-100500"); err != nil {
		t.Fatalf("SetTelegramChat: %v", err)
	}

	c, err := h.svc.AddCandidate(ctx, owner, room.ID, h.futureDate(5), "3")
	if err != nil {
		t.Fatalf("AddCandidate: %v", err)
	}
	for _, sess := range []auth.Session{members[1], owner} {
		if err := h.svc.SetResponse(ctx, sess, c.ID, uuid.Nil, "yes"); err != nil {
			t.Fatalf("SetResponse: %v", err)
		}
	}

	if _, err := h.svc.ConfirmCandidate(ctx, members[0], c.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("member confirm: err = %v, want ErrForbidden", err)
	}

	_, err = h.svc.ConfirmCandidate(ctx, owner, c.ID, "19:00")
	if !errors.Is(err, repository.ErrQuorumNotReached) {
		t.Fatalf("err = %v, want ErrQuorumNotReached", err)
	}
	if msg := UserMessage(err); msg != "quorum not reached (2 of 3)" {
		t.Errorf("UserMessage = %q", msg)
	}
	if h.store.EventCount() != 0 {
		t.Fatal("no event may be created without quorum")
	}

	if _, err := h.svc.AddGuest(ctx, members[0], room.ID, GuestInput{CandidateID: c.ID, Name: "Zed"}); err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	if _, err := h.svc.ConfirmCandidate(ctx, owner, c.ID, "7pm"); err == nil {
		t.Fatal("expected error for bad start time")
	}

	eventID, err := h.svc.ConfirmCandidate(ctx, owner, c.ID, "19:00")
	if err != nil {
		t.Fatalf("ConfirmCandidate: %v", err)
	}

	e, err := h.svc.Events.GetByID(ctx, eventID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.DateString() != c.DateString() || e.MinPlayers != 3 {
		t.Errorf("unexpected event %+v", e)
	}
	if got := e.StartTimeIn(time.UTC); got != "19:00" {
		t.Errorf("start time = %q", got)
	}

	if len(h.announcer.sent) != 1 {
		t.Fatalf("want 1 announcement, got %d", len(h.announcer.sent))
	}
	a := h.announcer.sent[0]
	if a.chatID != -100500 || !strings.HasPrefix(a.text, "[Confirmed] Friday Mahjong") {
		t.Errorf("unexpected announcement %+v", a)
	}
	if !strings.Contains(a.text, "Participants: 3 (members + guests)") {
		t.Errorf("announcement should count members and guests:\n%s", a.text)
	}

	if _, err := h.svc.ConfirmCandidate(ctx, owner, c.ID, ""); !errors.Is(err, repository.ErrAlreadyConfirmed) {
		t.Errorf("second confirm: err = %v, want ErrAlreadyConfirmed", err)
	}

	want := []string{OutcomeRejected, OutcomeNoQuorum, OutcomeConfirmed, OutcomeRejected}
	if strings.Join(h.recorder.outcomes, ",") != strings.Join(want, ",") {
		t.Errorf("outcomes = %v, want %v", h.recorder.outcomes, want)
	}
}

func confirmedEvent(t *testing.T, h *harness) (*models.Room, *models.Event, *models.Candidate) {
	t.Helper()
	ctx := context.Background()
	room, owner, members := h.roomWith(t, "Mia")

	c, err := h.svc.AddCandidate(ctx, owner, room.ID, h.futureDate(1), "2")
	if err != nil {
		t.Fatalf("AddCandidate: %v", err)
	}
	for _, sess := range []auth.Session{members[0], owner} {
		if err := h.svc.SetResponse(ctx, sess, c.ID, uuid.Nil, "yes"); err != nil {
			t.Fatalf("SetResponse: %v", err)
		}
	}
	id, err := h.svc.ConfirmCandidate(ctx, owner, c.ID, "")
	if err != nil {
		t.Fatalf("ConfirmCandidate: %v", err)
	}
	e, _ := h.svc.Events.GetByID(ctx, id)
	return room, e, c
}

func TestEventDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, e, _ := confirmedEvent(t, h)

	owner := h.sessionFor(t, room, models.RoleOwner)
	view, err := h.svc.EventDetail(ctx, owner, e.ID)
	if err != nil {
		t.Fatalf("EventDetail: %v", err)
	}
	if len(view.Participants) != 2 {
		t.Fatalf("participants = %+v", view.Participants)
	}
	if view.Participants[0].DisplayName != "Mia" || view.Participants[1].DisplayName != "Owner" {
		t.Errorf("participants should be sorted by name: %+v", view.Participants)
	}
	if !view.Participants[1].IsMe {
		t.Error("owner should be marked as me")
	}
	if !strings.Contains(view.ShareText, "Start: TBD") {
		t.Errorf("share text without start time:\n%s", view.ShareText)
	}
	if view.URL != "https://rollcall.test/events/"+e.ID.String() {
		t.Errorf("URL = %q", view.URL)
	}

	outsider := h.signUp(t, "out@example.com", "Out")
	if _, err := h.svc.EventDetail(ctx, outsider, e.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("outsider: err = %v, want ErrNotMember", err)
	}
}

func TestUpdateEventDetails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, e, _ := confirmedEvent(t, h)
	member := h.sessionFor(t, room, models.RoleMember)

	if err := h.svc.UpdateEventDetails(ctx, member, e.ID, "25:00", ""); err == nil {
		t.Fatal("expected error for invalid time")
	}
	if err := h.svc.UpdateEventDetails(ctx, member, e.ID, "18:30", "  bring snacks "); err != nil {
		t.Fatalf("UpdateEventDetails: %v", err)
	}

	view, err := h.svc.EventDetail(ctx, member, e.ID)
	if err != nil {
		t.Fatalf("EventDetail: %v", err)
	}
	if view.StartTime != "18:30" || view.Event.Note != "bring snacks" {
		t.Errorf("start=%q note=%q", view.StartTime, view.Event.Note)
	}
	if !strings.Contains(view.ShareText, "Note: bring snacks") {
		t.Errorf("share text missing note:\n%s", view.ShareText)
	}

	if err := h.svc.UpdateEventDetails(ctx, member, e.ID, "", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	view, _ = h.svc.EventDetail(ctx, member, e.ID)
	if view.Event.StartsAt != nil {
		t.Error("empty start time should clear it")
	}
}

func TestUnconfirmEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, e, c := confirmedEvent(t, h)

	member := h.sessionFor(t, room, models.RoleMember)
	if _, err := h.svc.UnconfirmEvent(ctx, member, e.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("member unconfirm: err = %v, want ErrForbidden", err)
	}

	owner := h.sessionFor(t, room, models.RoleOwner)
	if _, err := h.svc.UnconfirmEvent(ctx, owner, e.ID); err != nil {
		t.Fatalf("UnconfirmEvent: %v", err)
	}
	reopened, _ := h.svc.Candidates.GetByID(ctx, c.ID)
	if reopened.IsConfirmed {
		t.Error("candidate should be open again")
	}
	if _, err := h.svc.ConfirmCandidate(ctx, owner, c.ID, ""); err != nil {
		t.Errorf("re-confirm after cancel: %v", err)
	}
}
