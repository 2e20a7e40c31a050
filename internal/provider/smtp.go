package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseTLS dials SMTPS (implicit TLS). Auth is only sent over TLS.
	UseTLS  bool
	Timeout time.Duration
}

// SMTPProvider sends multipart/alternative mail over SMTP.
type SMTPProvider struct {
	cfg SMTPConfig
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, email Email) (*SendResponse, error) {
	messageID := fmt.Sprintf("<%s@%s>", idFor(email.IdempotencyKey), p.cfg.Host)

	msg, err := buildMessage(email, messageID)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(p.cfg.Host, fmt.Sprint(p.cfg.Port))
	from := parseAddress(email.From)

	dialer := &net.Dialer{Timeout: p.cfg.Timeout}
	var conn net.Conn
	if p.cfg.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: p.cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("new client: %w", err)
	}
	defer func() {
		_ = c.Close()
	}()

	if p.cfg.UseTLS && p.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)); err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(email.To); err != nil {
		return nil, fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close data: %w", err)
	}
	_ = c.Quit()

	return &SendResponse{MessageID: messageID}, nil
}

// buildMessage renders headers and a multipart/alternative body with the
// plain-text part first, as mail clients pick the last part they support.
func buildMessage(email Email, messageID string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", email.Text},
		{"text/html; charset=UTF-8", email.HTML},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		if _, err := pw.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	headers := []string{
		"From: " + email.From,
		"To: " + email.To,
		"Subject: " + email.Subject,
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mw.Boundary(),
	}
	return append([]byte(strings.Join(headers, "\r\n")+"\r\n\r\n"), body.Bytes()...), nil
}

// parseAddress extracts the bare address from "Name <addr>".
func parseAddress(from string) string {
	if i := strings.Index(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			return strings.TrimSpace(from[i+1 : i+j])
		}
	}
	return strings.TrimSpace(from)
}

// idFor derives a stable Message-ID local part from the idempotency key so
// a resend carries the same id and can be deduplicated downstream.
func idFor(key string) string {
	if key == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// compile-time check that SMTPProvider implements Provider
var _ Provider = (*SMTPProvider)(nil)
