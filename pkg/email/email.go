package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"sync"

	"github.com/Gradiiai/gradii-sub007/config"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

var ErrNotConfigured = errors.New("smtp is not configured")

//go:embed templates/*.html
var templateFS embed.FS

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService sends transactional emails via SMTP
type EmailService struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	fromName  string
	send      sendFunc

	once      sync.Once
	templates map[domain.EmailKind]*template.Template
	parseErr  error
}

var _ domain.Mailer = (*EmailService)(nil)

func NewEmailService(cfg *config.Config) *EmailService {
	from := cfg.SMTP.FromEmail
	if from == "" {
		from = cfg.SMTP.Username
	}
	return &EmailService{
		host:      cfg.SMTP.Host,
		port:      cfg.SMTP.Port,
		username:  cfg.SMTP.Username,
		password:  cfg.SMTP.Password,
		fromEmail: from,
		fromName:  cfg.SMTP.FromName,
		send:      smtp.SendMail,
	}
}

// IsConfigured checks if the email service has valid SMTP configuration
func (s *EmailService) IsConfigured() bool {
	return s.host != "" && s.fromEmail != ""
}

func (s *EmailService) loadTemplates() {
	s.templates = make(map[domain.EmailKind]*template.Template)
	for _, kind := range []domain.EmailKind{domain.EmailInterviewInvite, domain.EmailTeamInvite, domain.EmailInterviewDone} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(kind)+".html")
		if err != nil {
			s.parseErr = fmt.Errorf("failed to parse %s template: %w", kind, err)
			return
		}
		s.templates[kind] = tmpl
	}
}

// Render returns the HTML body for msg.
func (s *EmailService) Render(msg domain.EmailMessage) (string, error) {
	s.once.Do(s.loadTemplates)
	if s.parseErr != nil {
		return "", s.parseErr
	}
	tmpl, ok := s.templates[msg.Kind]
	if !ok {
		return "", fmt.Errorf("unknown email kind %q", msg.Kind)
	}
	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", msg); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

func (s *EmailService) Send(ctx context.Context, msg domain.EmailMessage) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return errors.New("invalid email header value")
	}

	body, err := s.Render(msg)
	if err != nil {
		return err
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.fromName), s.fromEmail)
	}
	raw := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		from,
		msg.To,
		mime.QEncoding.Encode("utf-8", msg.Subject),
		body,
	))

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.send(addr, auth, s.fromEmail, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
