package email

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// TemplateData is passed to the HTML template selected by name.
type TemplateData struct {
	Otp       string
	ExpiresAt string
	Email     string
}

// Sender delivers transactional email. The core passes a plain-text body and
// a template name; the implementation picks the HTML template at this
// boundary.
type Sender interface {
	Send(to, subject, plainBody, templateName string, data TemplateData) error
}

// SMTPConfig holds the dialer settings for the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a gomail-backed sender.
func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(to, subject, plainBody, templateName string, data TemplateData) error {
	html, err := Render(templateName, data)
	if err != nil {
		return fmt.Errorf("render email template %q: %w", templateName, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", html)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

type logSender struct{}

// NewLogSender returns a sender that only logs, for dev mode and tests.
func NewLogSender() Sender {
	return logSender{}
}

func (logSender) Send(to, subject, plainBody, templateName string, data TemplateData) error {
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("template", templateName).
		Str("otp", data.Otp).
		Msg("dev mode: email not sent")
	return nil
}
