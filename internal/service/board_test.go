package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
)

func TestAddCandidateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, owner, _ := h.roomWith(t)

	tests := []struct {
		name       string
		date       string
		minPlayers string
		wantErr    bool
		wantMin    int
	}{
		{"default minimum", h.futureDate(1), "", false, models.DefaultMinPlayers},
		{"lower bound", h.futureDate(2), "2", false, 2},
		{"upper bound", h.futureDate(3), "20", false, 20},
		{"today", h.futureDate(0), "4", false, 4},
		{"below range", h.futureDate(4), "1", true, 0},
		{"above range", h.futureDate(5), "21", true, 0},
		{"not a number", h.futureDate(6), "four", true, 0},
		{"missing date", "", "4", true, 0},
		{"bad date", "19/12/2025", "4", true, 0},
		{"past date", h.futureDate(-1), "4", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := h.svc.AddCandidate(ctx, owner, room.ID, tt.date, tt.minPlayers)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddCandidate: %v", err)
			}
			if c.MinPlayers != tt.wantMin {
				t.Errorf("MinPlayers = %d, want %d", c.MinPlayers, tt.wantMin)
			}
			if c.DateString() != tt.date {
				t.Errorf("date = %s, want %s", c.DateString(), tt.date)
			}
		})
	}
}

func TestMembersMayProposeButNotDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, owner, members := h.roomWith(t, "Mia")

	c, err := h.svc.AddCandidate(ctx, members[0], room.ID, h.futureDate(2), "")
	if err != nil {
		t.Fatalf("member AddCandidate: %v", err)
	}
	if err := h.svc.DeleteCandidate(ctx, members[0], c.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("member delete: err = %v, want ErrForbidden", err)
	}
	if err := h.svc.DeleteCandidate(ctx, owner, c.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	board, err := h.svc.RoomBoard(ctx, owner, room.ID)
	if err != nil {
		t.Fatalf("RoomBoard: %v", err)
	}
	if len(board.Cards) != 0 {
		t.Errorf("deleted candidate still listed")
	}
}

func TestSetResponse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, owner, members := h.roomWith(t, "Mia", "Noah")
	mia, noah := members[0], members[1]

	c, err := h.svc.AddCandidate(ctx, owner, room.ID, h.futureDate(2), "3")
	if err != nil {
		t.Fatalf("AddCandidate: %v", err)
	}

	if err := h.svc.SetResponse(ctx, mia, c.ID, uuid.Nil, "sure"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if err := h.svc.SetResponse(ctx, mia, c.ID, uuid.Nil, "maybe"); err != nil {
		t.Fatalf("SetResponse: %v", err)
	}
	if err := h.svc.SetResponse(ctx, mia, c.ID, uuid.Nil, "yes"); err != nil {
		t.Fatalf("SetResponse: %v", err)
	}
	if err := h.svc.SetResponse(ctx, mia, c.ID, noah.UserID, "yes"); !errors.Is(err, ErrForbidden) {
		t.Errorf("member answering for another: err = %v, want ErrForbidden", err)
	}
	if err := h.svc.SetResponse(ctx, owner, c.ID, noah.UserID, "no"); err != nil {
		t.Fatalf("owner on behalf: %v", err)
	}
	outsider := h.signUp(t, "out@example.com", "Out")
	if err := h.svc.SetResponse(ctx, owner, c.ID, outsider.UserID, "yes"); err == nil {
		t.Error("owner cannot answer for a non-member")
	}

	summary, err := h.svc.CandidateTally(ctx, owner, c.ID)
	if err != nil {
		t.Fatalf("CandidateTally: %v", err)
	}
	if summary.YesMembers != 1 || summary.No != 1 || summary.Maybe != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}

	board, err := h.svc.RoomBoard(ctx, mia, room.ID)
	if err != nil {
		t.Fatalf("RoomBoard: %v", err)
	}
	if len(board.Cards) != 1 {
		t.Fatalf("want 1 card, got %d", len(board.Cards))
	}
	card := board.Cards[0]
	if card.MyStatus != models.ResponseYes {
		t.Errorf("MyStatus = %q", card.MyStatus)
	}
	if len(card.Responses) != 3 {
		t.Errorf("want a response row per member, got %d", len(card.Responses))
	}
	if card.Summary.Remaining() != 2 {
		t.Errorf("Remaining = %d, want 2", card.Summary.Remaining())
	}
}

func TestGuests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, owner, members := h.roomWith(t, "Mia", "Noah")
	mia, noah := members[0], members[1]

	c, err := h.svc.AddCandidate(ctx, owner, room.ID, h.futureDate(2), "2")
	if err != nil {
		t.Fatalf("AddCandidate: %v", err)
	}

	if _, err := h.svc.AddGuest(ctx, mia, room.ID, GuestInput{CandidateID: c.ID, Name: " "}); err == nil {
		t.Fatal("expected error for blank guest name")
	}
	if _, err := h.svc.AddGuest(ctx, mia, room.ID, GuestInput{CandidateID: uuid.New(), Name: "Zed"}); err == nil {
		t.Fatal("expected error for unknown candidate")
	}

	g, err := h.svc.AddGuest(ctx, mia, room.ID, GuestInput{CandidateID: c.ID, Name: "Zed", Note: "Mia's friend"})
	if err != nil {
		t.Fatalf("AddGuest: %v", err)
	}

	summary, _ := h.svc.CandidateTally(ctx, owner, c.ID)
	if summary.GuestCount != 1 || summary.YesTotal != 1 {
		t.Errorf("guest should count as a yes: %+v", summary)
	}

	if _, err := h.svc.DeleteGuest(ctx, noah, g.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other member delete: err = %v, want ErrForbidden", err)
	}
	if _, err := h.svc.DeleteGuest(ctx, mia, g.ID); err != nil {
		t.Errorf("creator delete: %v", err)
	}

	g2, _ := h.svc.AddGuest(ctx, noah, room.ID, GuestInput{CandidateID: c.ID, Name: "Yan"})
	if _, err := h.svc.DeleteGuest(ctx, owner, g2.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}

func TestAddGuestCandidateLookupFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, _, members := h.roomWith(t, "Mia")

	h.svc.Candidates = brokenCandidates{h.svc.Candidates}
	_, err := h.svc.AddGuest(ctx, members[0], room.ID, GuestInput{CandidateID: uuid.New(), Name: "Zed"})
	if err == nil {
		t.Fatal("expected error")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Errorf("backend failure reported as validation error: %v", err)
	}
	if !strings.Contains(err.Error(), "connection reset by peer") {
		t.Errorf("err = %q, want the backend message", err)
	}
}
