package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"nonsense", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		if got := New(tt.in, "text").GetLevel(); got != tt.want {
			t.Errorf("New(%q).GetLevel() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", "json", &buf)

	WithFields(log, logrus.Fields{"room_id": "r1"}).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "hello" || entry["room_id"] != "r1" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", "text", &buf)
	log.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("unexpected text output %q", buf.String())
	}
}
