// Package mailer sends transactional email through SMTP, or to the log when no SMTP server is configured.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"net/smtp"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
)

// Message is a single email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the settings of the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender sends messages through an SMTP server with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
}

// NewSMTPSender creates an SMTPSender. Auth is skipped when no username is set.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{cfg: cfg, auth: auth}
}

// Send delivers msg. The SMTP exchange itself cannot be cancelled, so ctx only
// bounds how long the caller waits for it.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)
	e.HTML = []byte(msg.HTML)

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	done := make(chan error, 1)
	go func() { done <- e.Send(addr, s.auth) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
		}
		log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email to %s: %w", msg.To, ctx.Err())
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

// Send logs msg.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.Text).Msg("email not sent, SMTP is not configured")
	return nil
}

// Purpose tells which flow a one-time password belongs to.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

var subjects = map[Purpose]string{
	PurposeVerify: "Verify your account",
	PurposeReset:  "Reset your password",
}

var textTmpl = texttemplate.Must(texttemplate.New("otp").Parse(
	`Hi {{.Name}},

{{if eq .Purpose "reset"}}Use this code to reset your password{{else}}Use this code to verify your account{{end}}: {{.Code}}

The code expires in {{.TTL}}.
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("otp").Parse(
	`<p>Hi {{.Name}},</p>
<p>{{if eq .Purpose "reset"}}Use this code to reset your password{{else}}Use this code to verify your account{{end}}:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>The code expires in {{.TTL}}.</p>
`))

// OTPMessage renders the email carrying a one-time password.
func OTPMessage(to, name, code string, purpose Purpose, ttl time.Duration) (Message, error) {
	data := struct {
		Name    string
		Code    string
		Purpose Purpose
		TTL     string
	}{Name: name, Code: code, Purpose: purpose, TTL: ttl.String()}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render otp email: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render otp email: %w", err)
	}
	return Message{To: to, Subject: subjects[purpose], Text: text.String(), HTML: html.String()}, nil
}
