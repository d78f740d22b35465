package services

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// MailService sends transactional email over SMTP.
type MailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailService reads SMTP settings from the environment.
func NewMailService() (*MailService, error) {
	host := os.Getenv("SMTP_HOST")
	portStr := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	if host == "" || portStr == "" || from == "" {
		return nil, fmt.Errorf("missing SMTP settings in environment variables")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", portStr, err)
	}

	return &MailService{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}, nil
}

// SendEmail sends an HTML email to a single recipient.
func (m *MailService) SendEmail(to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return err
	}

	log.Printf("✅ Email sent to %s", to)
	return nil
}
