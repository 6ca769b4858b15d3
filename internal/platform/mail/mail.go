// Package mail delivers plain-text notification e-mails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrNoRecipient is returned for messages without a recipient.
var ErrNoRecipient = errors.New("mail: recipient required")

// Message is one outgoing e-mail.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings. An empty Host selects the no-op mailer.
type Config struct {
	Host     string
	Port     int
	From     string
	User     string
	Password string
	StartTLS bool
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, Message) error { return nil }

type smtpMailer struct {
	cfg Config
}

// New returns an SMTP mailer, or a mailer that drops everything when no
// host is configured.
func New(cfg Config) Mailer {
	if strings.TrimSpace(cfg.Host) == "" {
		return noopMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

// Enabled reports whether m actually delivers mail.
func Enabled(m Mailer) bool {
	_, noop := m.(noopMailer)
	return !noop
}

func (s *smtpMailer) Send(ctx context.Context, msg Message) error {
	to := sanitize(msg.To)
	if to == "" {
		return ErrNoRecipient
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if s.cfg.User != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(s.cfg.From, to, msg.Subject, msg.Body)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	headers := []string{
		"From: " + sanitize(from),
		"To: " + sanitize(to),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitize(subject)),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n" + body)
}

// sanitize drops line breaks so values cannot inject headers.
func sanitize(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(s))
}
