package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	FromName  string
	TLSPolicy string
}

// EmailService sends mail over SMTP. It opens one connection per message.
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new EmailService.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// Send delivers an HTML message to a single recipient.
func (s *EmailService) Send(ctx context.Context, to, subject, body string) error {
	msg, err := s.newMessage(to, subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailService) newMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.config.FromName, s.config.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (s *EmailService) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTLSPolicy(tlsPolicy(s.config.TLSPolicy)),
	}
	if s.config.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.User),
			mail.WithPassword(s.config.Password),
		)
	}
	return opts
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// LogMailer logs messages instead of sending them. Bodies carry one-time
// codes and are only logged when logBody is set.
type LogMailer struct {
	logger  *slog.Logger
	logBody bool
}

// NewLogMailer creates a new LogMailer.
func NewLogMailer(logger *slog.Logger, logBody bool) *LogMailer {
	return &LogMailer{logger: logger, logBody: logBody}
}

// Send logs the message.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	attrs := []any{"to", to, "subject", subject}
	if m.logBody {
		attrs = append(attrs, "body", body)
	}
	m.logger.InfoContext(ctx, "email not sent: SMTP is not configured", attrs...)
	return nil
}
