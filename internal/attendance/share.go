package attendance

import (
	"fmt"
	"strings"
	"time"
)

// ShareInput carries everything the announcement text mentions
type ShareInput struct {
	RoomName     string
	Date         time.Time
	StartTime    string // HH:MM, empty when not decided yet
	Participants int
	URL          string
	Note         string
}

// ShareText builds the announcement posted when a candidate is confirmed
func ShareText(in ShareInput) string {
	start := in.StartTime
	if start == "" {
		start = "TBD"
	}

	title := "[Confirmed]"
	if in.RoomName != "" {
		title = fmt.Sprintf("[Confirmed] %s", in.RoomName)
	}

	lines := []string{
		title,
		fmt.Sprintf("Date: %s", in.Date.Format("2006-01-02 (Mon)")),
		fmt.Sprintf("Start: %s", start),
		fmt.Sprintf("Participants: %d (members + guests)", in.Participants),
	}
	if in.URL != "" {
		lines = append(lines, fmt.Sprintf("URL: %s", in.URL))
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		lines = append(lines, fmt.Sprintf("Note: %s", note))
	}
	return strings.Join(lines, "\n")
}
