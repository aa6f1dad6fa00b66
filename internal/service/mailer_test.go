package service

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestSMTPMailer(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "user", "secret", "rollcall@example.com")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := m.SendPasswordReset(context.Background(), "dave@example.com", "https://rollcall.test/password/reset?token=abc"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "rollcall@example.com" {
		t.Errorf("addr=%q from=%q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "dave@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	body := string(gotMsg)
	if !strings.Contains(body, "To: dave@example.com\r\n") || !strings.Contains(body, "token=abc") {
		t.Errorf("unexpected message:\n%s", body)
	}

	if err := m.SendPasswordReset(context.Background(), "x@example.com\r\nBcc: y@example.com", "l"); err == nil {
		t.Error("header injection must be rejected")
	}
}
