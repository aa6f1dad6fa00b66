package service

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogMailer writes reset links to the log instead of sending mail. It is
// used when no SMTP relay is configured.
type LogMailer struct {
	logger *logrus.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendPasswordReset logs the link
func (m *LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	m.logger.WithFields(logrus.Fields{
		"to":   to,
		"link": link,
	}).Info("Password reset link (mail delivery disabled)")
	return nil
}

// SMTPMailer sends plain text mail through an SMTP relay with PLAIN auth
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates an SMTPMailer. Username may be empty for relays that
// do not authenticate.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var a smtp.Auth
	if username != "" {
		a = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: a,
		from: from,
		send: smtp.SendMail,
	}
}

// SendPasswordReset mails the reset link to the account address
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient address")
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: Reset your rollcall password",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"Someone asked to reset the password for this address.",
		"Open the link below within an hour to choose a new one:",
		"",
		link,
		"",
		"If this was not you, ignore this message.",
	}, "\r\n")

	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
