package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/models"
)

// StartReminderScheduler runs a background loop that checks every interval
// for confirmed events starting within lead and announces each one once to
// its room's chat. It blocks until the context is cancelled, so it should be
// launched in a separate goroutine.
func (s *Service) StartReminderScheduler(ctx context.Context, interval, lead time.Duration) {
	if s.announcer == nil {
		s.logger.Info("Reminder scheduler disabled: no announcer configured")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"interval": interval,
		"lead":     lead,
	}).Info("Reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.processReminders(ctx, lead)
		}
	}
}

// processReminders announces every due event and marks it reminded. Events
// whose room has no linked chat are marked as well so they are not picked up
// again.
func (s *Service) processReminders(ctx context.Context, lead time.Duration) int {
	now := s.now()
	events, err := s.Events.ListDueReminders(ctx, now, now.Add(lead))
	if err != nil {
		s.logger.WithError(err).Error("Failed to get due reminders")
		return 0
	}

	sent := 0
	for _, e := range events {
		log := s.logger.WithField("event_id", e.ID)

		room, err := s.Rooms.GetByID(ctx, e.RoomID)
		if err != nil {
			log.WithError(err).Error("Failed to load room for reminder")
			continue
		}

		if room.TelegramChatID != nil {
			text, err := s.reminderText(ctx, room, e, now)
			if err != nil {
				log.WithError(err).Error("Failed to build reminder")
				continue
			}
			if err := s.announcer.Announce(ctx, *room.TelegramChatID, text); err != nil {
				log.WithError(err).Error("Failed to send reminder")
				continue
			}
			sent++
		}

		if err := s.Events.MarkReminded(ctx, e.ID, now); err != nil {
			log.WithError(err).Error("Failed to mark event reminded")
		}
	}
	return sent
}

func (s *Service) reminderText(ctx context.Context, room *models.Room, e *models.Event, now time.Time) (string, error) {
	ps, _, _, err := s.participants(ctx, e, uuid.Nil)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.DisplayName)
	}

	lines := []string{
		fmt.Sprintf("[Reminder] %s", room.Name),
		fmt.Sprintf("Starts at %s (in %s)", e.StartTimeIn(s.loc), untilText(e.StartsAt.Sub(now))),
		fmt.Sprintf("Participants: %d", len(ps)),
	}
	if len(names) > 0 {
		lines = append(lines, strings.Join(names, ", "))
	}
	lines = append(lines, s.link(eventPath(e.ID)))
	return strings.Join(lines, "\n"), nil
}

func untilText(d time.Duration) string {
	d = d.Round(time.Minute)
	h, m := int(d.Hours()), int(d.Minutes())%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
