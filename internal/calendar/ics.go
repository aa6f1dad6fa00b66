// Package calendar exports confirmed events as iCalendar files.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/Kerhoff/rollcall/internal/models"
)

// DefaultDuration is the length given to events with a start time
const DefaultDuration = 4 * time.Hour

// Export is what goes into a single-event calendar file
type Export struct {
	RoomName     string
	Event        *models.Event
	Participants []models.Participant
	URL          string
}

// Filename returns a download name for the event
func Filename(e *models.Event) string {
	return fmt.Sprintf("rollcall-%s.ics", e.DateString())
}

// Encode writes the event as a VCALENDAR with a single VEVENT. Events without
// a start time become all-day events.
func Encode(w io.Writer, ex Export, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//rollcall//EN")
	cal.Children = append(cal.Children, toVEvent(ex, now))

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	return nil
}

func toVEvent(ex Export, now time.Time) *ical.Component {
	e := ex.Event

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID.String()+"@rollcall")
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())

	summary := "Confirmed"
	if ex.RoomName != "" {
		summary = ex.RoomName
	}
	ve.Props.SetText(ical.PropSummary, summary)

	if e.StartsAt != nil {
		ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartsAt.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, e.StartsAt.Add(DefaultDuration).UTC())
	} else {
		y, m, d := e.Date.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		ve.Props.SetDate(ical.PropDateTimeStart, day)
		ve.Props.SetDate(ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
	}

	if desc := description(ex); desc != "" {
		ve.Props.SetText(ical.PropDescription, desc)
	}
	if ex.URL != "" {
		ve.Props.SetText(ical.PropURL, ex.URL)
	}
	return ve
}

func description(ex Export) string {
	var lines []string
	if len(ex.Participants) > 0 {
		names := make([]string, 0, len(ex.Participants))
		for _, p := range ex.Participants {
			names = append(names, p.DisplayName)
		}
		lines = append(lines, fmt.Sprintf("Participants (%d): %s", len(names), strings.Join(names, ", ")))
	}
	if note := strings.TrimSpace(ex.Event.Note); note != "" {
		lines = append(lines, note)
	}
	return strings.Join(lines, "\n")
}
