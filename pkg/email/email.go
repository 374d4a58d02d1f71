// Package email sends transactional mail over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/layr-ng/layr-api/pkg/observability"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages. Handlers depend on this interface so tests can
// capture mail instead of sending it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// SMTPSender sends mail through a single SMTP relay.
type SMTPSender struct {
	config SMTPConfig
	logger *observability.Logger
}

// NewSMTPSender creates a sender.
func NewSMTPSender(config SMTPConfig, logger *observability.Logger) *SMTPSender {
	return &SMTPSender{config: config, logger: logger}
}

// Send delivers one message. The context is not honored mid-handshake since
// net/smtp does not accept one; callers should treat this as best effort.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	addr := s.config.Host + ":" + s.config.Port
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)

	if err := smtp.SendMail(addr, auth, s.config.From, []string{msg.To}, []byte(b.String())); err != nil {
		s.logger.WithError(err).WithField("to", msg.To).Error("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopSender discards all mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) error { return nil }

// PasswordResetMessage builds the reset link email.
func PasswordResetMessage(to, resetLink string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		HTML: fmt.Sprintf(`
			<p>You requested a password reset for your account.</p>
			<p>Click <a href="%s">here</a> to reset your password.</p>
			<p>This link will expire in 15 minutes.</p>
			<p>If you didn't request this, please ignore this email.</p>
		`, resetLink),
	}
}

// TeamInviteMessage builds the team invitation email.
func TeamInviteMessage(to, inviterName, teamTitle, inviteLink string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You've been invited to join %s", teamTitle),
		HTML: fmt.Sprintf(`
			<p><strong>%s</strong> has invited you to join the team <strong>%s</strong>.</p>
			<p>Click <a href="%s">here</a> to accept or decline the invitation.</p>
			<p>This invitation expires in 7 days.</p>
		`, inviterName, teamTitle, inviteLink),
	}
}
