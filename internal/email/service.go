// Package email forwards contact-form enquiries to the company inbox via SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	Inbox    string // destination for contact enquiries
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.config.Inbox != ""
}

// ContactMessage is a visitor enquiry submitted through the public site.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// SendContact forwards an enquiry to the configured inbox.
func (s *Service) SendContact(m ContactMessage) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	subject := "Website enquiry"
	if strings.TrimSpace(m.Subject) != "" {
		subject = "Website enquiry: " + strings.TrimSpace(m.Subject)
	}

	return s.sendPlain([]string{s.config.Inbox}, subject, contactBody(m, time.Now()))
}

func contactBody(m ContactMessage, received time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New enquiry received %s\n\n", received.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "Name:  %s\n", m.Name)
	fmt.Fprintf(&b, "Email: %s\n", m.Email)
	if m.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", m.Phone)
	}
	b.WriteString("\n")
	b.WriteString(m.Message)
	b.WriteString("\n")
	return b.String()
}

func (s *Service) sendPlain(to []string, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return s.send(s.server, s.auth, s.config.From, to, msg)
}
