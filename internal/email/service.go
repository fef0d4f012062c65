package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

type Service interface {
	SendPasswordReset(ctx context.Context, email string, token string) error
	SendWelcome(ctx context.Context, email string, name string) error
	SendApprovalNotice(ctx context.Context, email string, approved bool) error
}

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	BaseURL  string `mapstructure:"base_url"`
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

type smtpService struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewService returns an SMTP sender, or a logging no-op when no SMTP host
// is configured so local setups keep working without a mail relay.
func NewService(cfg Config, logger *zerolog.Logger) Service {
	if !cfg.Enabled() {
		return &noopService{logger: logger}
	}
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendPasswordReset(ctx context.Context, email, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for this address.<br><br>"+
			"<a href=%q>Reset your password</a><br><br>"+
			"If you did not request this, ignore this message.",
		fmt.Sprintf("%s/reset-password?token=%s", s.cfg.BaseURL, token),
	)
	return s.send(email, "Reset your password", body)
}

func (s *smtpService) SendWelcome(ctx context.Context, email, name string) error {
	if name == "" {
		name = email
	}
	body := fmt.Sprintf(
		"Hello %s,<br><br>Your account was created and is awaiting approval. "+
			"You will be notified once an administrator reviews it.",
		name,
	)
	return s.send(email, "Welcome to the scheduling calendar", body)
}

func (s *smtpService) SendApprovalNotice(ctx context.Context, email string, approved bool) error {
	subject := "Your account was approved"
	body := "Your account was approved. You can now sign in."
	if !approved {
		subject = "Your account request was declined"
		body = "Your account request was declined. Contact an administrator for details."
	}
	return s.send(email, subject, body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type noopService struct {
	logger *zerolog.Logger
}

func (s *noopService) SendPasswordReset(ctx context.Context, email, token string) error {
	s.logger.Info().Str("email", email).Msg("email disabled, skipping password reset message")
	return nil
}

func (s *noopService) SendWelcome(ctx context.Context, email, name string) error {
	s.logger.Info().Str("email", email).Msg("email disabled, skipping welcome message")
	return nil
}

func (s *noopService) SendApprovalNotice(ctx context.Context, email string, approved bool) error {
	s.logger.Info().Str("email", email).Bool("approved", approved).Msg("email disabled, skipping approval notice")
	return nil
}
