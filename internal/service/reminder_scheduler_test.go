package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Kerhoff/rollcall/internal/models"
)

func TestProcessReminders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, e, _ := confirmedEvent(t, h)

	owner := h.sessionFor(t, room, models.RoleOwner)
	if err := h.svc.SetTelegramChat(ctx, owner, room.ID, "777"); err != nil {
		t.Fatalf("SetTelegramChat: %v", err)
	}
	h.announcer.sent = nil

	now := time.Date(2030, 1, 10, 17, 0, 0, 0, time.UTC)
	h.svc.now = func() time.Time { return now }

	startsAt := now.Add(2*time.Hour + 30*time.Minute)
	if err := h.svc.Events.UpdateDetails(ctx, e.ID, &startsAt, ""); err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}

	if sent := h.svc.processReminders(ctx, 2*time.Hour); sent != 0 {
		t.Fatalf("event outside the lead window was announced")
	}
	if sent := h.svc.processReminders(ctx, 3*time.Hour); sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}

	text := h.announcer.sent[0].text
	if !strings.HasPrefix(text, "[Reminder] Friday Mahjong") {
		t.Errorf("unexpected reminder:\n%s", text)
	}
	if !strings.Contains(text, "Starts at 19:30 (in 2h30m)") {
		t.Errorf("reminder missing start time:\n%s", text)
	}
	if !strings.Contains(text, "Mia, Owner") {
		t.Errorf("reminder missing participants:\n%s", text)
	}

	if sent := h.svc.processReminders(ctx, 3*time.Hour); sent != 0 {
		t.Errorf("reminder sent twice")
	}

	// moving the start time re-arms it
	if err := h.svc.UpdateEventDetails(ctx, owner, e.ID, "20:00", ""); err != nil {
		t.Fatalf("UpdateEventDetails: %v", err)
	}
	updated, err := h.svc.Events.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.RemindedAt != nil {
		t.Error("changing the start time should clear reminded_at")
	}
}

func TestUntilText(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Minute, "45m"},
		{2*time.Hour + 5*time.Minute, "2h05m"},
		{3 * time.Hour, "3h00m"},
	}
	for _, tt := range tests {
		if got := untilText(tt.in); got != tt.want {
			t.Errorf("untilText(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
