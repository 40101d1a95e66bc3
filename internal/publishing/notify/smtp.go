// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig configures an [SMTPNotifier].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

// SMTPNotifier mails messages to the operator address through a relay.
type SMTPNotifier struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPNotifier returns an [SMTPNotifier].
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPNotifier{cfg: cfg, now: time.Now}
}

/*
Send implements [Notifier].

Description: Dials the relay, upgrades with STARTTLS when offered,
authenticates when a username is configured, and submits one plain-text
UTF-8 message.
*/
func (n *SMTPNotifier) Send(ctx context.Context, message Message) error {
	if n.cfg.To == "" {
		return errors.New("notify: no operator address configured")
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("notify: smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("notify: starttls: %w", err)
		}
	}

	if n.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("notify: auth: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("notify: mail from: %w", err)
	}
	for _, recipient := range recipients(n.cfg.To) {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("notify: rcpt %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("notify: data: %w", err)
	}
	if _, err := writer.Write(n.compose(message)); err != nil {
		return fmt.Errorf("notify: write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("notify: close data: %w", err)
	}

	return client.Quit()
}

// compose renders the RFC 5322 message with an encoded subject.
func (n *SMTPNotifier) compose(message Message) []byte {
	var builder strings.Builder

	headers := [][2]string{
		{"From", n.cfg.From},
		{"To", n.cfg.To},
		{"Subject", mime.QEncoding.Encode("UTF-8", message.Subject)},
		{"Date", n.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
		{"Content-Transfer-Encoding", "8bit"},
		{"X-Kanko-Event", message.Event},
	}
	for _, header := range headers {
		builder.WriteString(header[0] + ": " + header[1] + "\r\n")
	}
	builder.WriteString("\r\n")
	builder.WriteString(strings.ReplaceAll(strings.ReplaceAll(message.Body, "\r\n", "\n"), "\n", "\r\n"))

	return []byte(builder.String())
}

func recipients(to string) []string {
	var list []string
	for _, part := range strings.Split(to, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
