// Package notifications is the report-emission layer behind
// dispatcher.ReportEmitter (spec.md §4.4 "report emission"): it takes the
// report type the Dispatcher's classify() already chose, renders the
// matching subject/HTML template, and hands the message to one of two
// primitives.EmailTransport adapters.
//
// Grounded on the teacher's notifications/email.go (SMTPProvider shape,
// html/template rendering, plain-text fallback via stripHTML) and
// notifications/manager.go (provider selection by configuration).
package notifications

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mbrown1837/webmonitor/internal/primitives"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SMTPConfig configures the default transport (spec.md §6).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	UseSSL   bool
}

// SMTPTransport sends reports over net/smtp, the teacher's own choice for
// transactional email (notifications/email.go's SMTPProvider).
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport returns the default primitives.EmailTransport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Send(ctx context.Context, msg primitives.EmailMessage) error {
	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\n", t.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(msg.To, ","))
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	body.WriteString(msg.HTMLBody)

	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
	if err := smtp.SendMail(addr, auth, t.cfg.From, msg.To, body.Bytes()); err != nil {
		return fmt.Errorf("notifications: smtp send: %w", err)
	}
	return nil
}

// SendGridTransport sends reports through SendGrid's transactional API,
// selected by configuration (`notification_provider=sendgrid`) as an
// alternative to raw SMTP (SPEC_FULL.md §5).
type SendGridTransport struct {
	apiKey string
	from   string
}

// NewSendGridTransport returns the SendGrid primitives.EmailTransport.
func NewSendGridTransport(apiKey, from string) *SendGridTransport {
	return &SendGridTransport{apiKey: apiKey, from: from}
}

func (t *SendGridTransport) Send(ctx context.Context, msg primitives.EmailMessage) error {
	from := sgmail.NewEmail("Website Monitor", t.from)
	plainText := stripHTML(msg.HTMLBody)

	m := sgmail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = msg.Subject
	m.AddContent(sgmail.NewContent("text/plain", plainText))
	m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))

	personalization := sgmail.NewPersonalization()
	for _, to := range msg.To {
		personalization.AddTos(sgmail.NewEmail("", to))
	}
	m.AddPersonalizations(personalization)

	client := sendgrid.NewSendClient(t.apiKey)
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("notifications: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifications: sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// stripHTML removes HTML tags for a plain-text fallback body, the same
// basic approach as the teacher's own notifications/email.go.
func stripHTML(html string) string {
	text := strings.ReplaceAll(html, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n")

	var out strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return out.String()
}
