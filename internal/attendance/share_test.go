package attendance

import (
	"strings"
	"testing"
	"time"
)

func TestShareText(t *testing.T) {
	date := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      ShareInput
		want    []string
		notWant []string
	}{
		{
			name: "full",
			in: ShareInput{
				RoomName:     "Ikebukuro table",
				Date:         date,
				StartTime:    "20:00",
				Participants: 4,
				URL:          "https://example.com/events/1",
				Note:         "meet at 19:50",
			},
			want: []string{
				"[Confirmed] Ikebukuro table",
				"Date: 2025-12-19 (Fri)",
				"Start: 20:00",
				"Participants: 4 (members + guests)",
				"URL: https://example.com/events/1",
				"Note: meet at 19:50",
			},
		},
		{
			name:    "no start time or note",
			in:      ShareInput{Date: date, Participants: 3},
			want:    []string{"[Confirmed]", "Start: TBD", "Participants: 3"},
			notWant: []string{"Note:", "URL:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShareText(tt.in)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("ShareText() missing %q in:\n%s", w, got)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("ShareText() should not contain %q in:\n%s", nw, got)
				}
			}
		})
	}
}
