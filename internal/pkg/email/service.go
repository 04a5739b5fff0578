// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
)

const welcomeTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">Welcome to {{.SiteName}}</h1>
    <p>Hello {{.UserName}},</p>
    <p>Your account for {{.UserEmail}} is ready. Browse the catalog and save products to your wishlist.</p>
    <p><a href="{{.ShopURL}}">Start shopping</a></p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
  </div>
</body>
</html>`

const passwordResetTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">Reset Password Notification</h1>
    <p>Hello {{.UserName}},</p>
    <p>You are receiving this email because we received a password reset request for your account.</p>
    <p><a href="{{.ResetURL}}">Reset Password</a></p>
    <p>This password reset link will expire in {{.ExpiresIn}} minutes.</p>
    <p>If you did not request a password reset, no further action is required.</p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
  </div>
</body>
</html>`

// EmailService sends transactional mail through the configured provider
type EmailService struct {
	config    *config.Config
	log       *logrus.Logger
	templates map[string]*template.Template
	client    *http.Client

	resendURL   string
	sendgridURL string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, log *logrus.Logger) *EmailService {
	service := &EmailService{
		config:      cfg,
		log:         log,
		templates:   make(map[string]*template.Template),
		client:      &http.Client{Timeout: 30 * time.Second},
		resendURL:   "https://api.resend.com/emails",
		sendgridURL: "https://api.sendgrid.com/v3/mail/send",
	}
	service.loadTemplates()
	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "log":
		s.log.WithFields(logrus.Fields{"to": email.To, "subject": email.Subject}).Info("📧 mail not sent, log provider")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendWelcomeEmail greets a newly registered user
func (s *EmailService) SendWelcomeEmail(ctx context.Context, userEmail, userName string) error {
	data := WelcomeData{
		TemplateData: baseTemplateData(s.config.Email.FromName, s.config.App.BaseURL, userName, userEmail),
		ShopURL:      s.config.App.BaseURL + "/products",
	}

	html, err := s.renderTemplate("welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render welcome email template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{userEmail},
		Subject:     fmt.Sprintf("Welcome to %s!", s.config.Email.FromName),
		HTMLContent: html,
	})
}

// SendPasswordResetEmail mails the reset link of a password reset request
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, userEmail, userName, resetURL string) error {
	data := PasswordResetData{
		TemplateData: baseTemplateData(s.config.Email.FromName, s.config.App.BaseURL, userName, userEmail),
		ResetURL:     resetURL,
		ExpiresIn:    int(s.config.Security.PasswordResetExpiry.Minutes()),
	}

	html, err := s.renderTemplate("password_reset", data)
	if err != nil {
		return fmt.Errorf("failed to render password reset email template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{userEmail},
		Subject:     "Reset Password Notification",
		HTMLContent: html,
	})
}

// loadTemplates reads overrides from the template directory and falls back to
// the built-in markup
func (s *EmailService) loadTemplates() {
	fallbacks := map[string]string{
		"welcome":        welcomeTemplate,
		"password_reset": passwordResetTemplate,
	}

	for name, fallback := range fallbacks {
		path := filepath.Join(s.config.Email.TemplateDir, name+".html")
		tmpl, err := template.ParseFiles(path)
		if err != nil {
			s.log.WithField("template", name).Debug("using built-in email template")
			tmpl = template.Must(template.New(name).Parse(fallback))
		}
		s.templates[name] = tmpl
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *EmailService) fromAddress() string {
	if s.config.Email.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	}
	return s.config.Email.FromEmail
}
