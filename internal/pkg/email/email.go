package email

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EmailService defines the interface for outbound member notifications
type EmailService interface {
	SendAppointmentReminder(toEmail, toName string, start time.Time, purpose string) error
	SendReimbursementDecision(toEmail, toName string, amountCents int64, approved bool, reason string) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// sender is satisfied by *gomail.Dialer
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailServiceImpl implements EmailService
type EmailServiceImpl struct {
	config SMTPConfig
	dialer sender
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(config SMTPConfig, logger zerolog.Logger) EmailService {
	return &EmailServiceImpl{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}
}

func (s *EmailServiceImpl) configured() bool {
	return s.config.Username != "" && s.config.Password != ""
}

// SendAppointmentReminder reminds a member of an upcoming appointment
func (s *EmailServiceImpl) SendAppointmentReminder(toEmail, toName string, start time.Time, purpose string) error {
	subject := "Your CareBridge appointment is coming up"
	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<p>Hello %s,</p>
				<p>This is a reminder of your %s appointment on <strong>%s</strong>.</p>
				<p>If you can no longer attend, please cancel at least 24 hours in advance.</p>
				<p>The CareBridge Team</p>
			</div>
		</body>
		</html>
	`, toName, purpose, start.UTC().Format("Mon Jan 2 2006 15:04 MST"))

	return s.sendHTMLEmail(toEmail, subject, body)
}

// SendReimbursementDecision tells a member whether their request was approved
func (s *EmailServiceImpl) SendReimbursementDecision(toEmail, toName string, amountCents int64, approved bool, reason string) error {
	subject := "Your reimbursement request was approved"
	outcome := "has been approved and will be deposited shortly"
	if !approved {
		subject = "Your reimbursement request was denied"
		outcome = "was denied"
		if reason != "" {
			outcome += ": " + reason
		}
	}
	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<p>Hello %s,</p>
				<p>Your reimbursement request for <strong>$%d.%02d</strong> %s.</p>
				<p>The CareBridge Team</p>
			</div>
		</body>
		</html>
	`, toName, amountCents/100, amountCents%100, outcome)

	return s.sendHTMLEmail(toEmail, subject, body)
}

func (s *EmailServiceImpl) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	if !s.configured() {
		s.logger.Warn().
			Str("toEmail", toEmail).
			Str("subject", subject).
			Msg("SMTP credentials not configured - email not sent")
		return nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error().Err(err).Str("toEmail", toEmail).Str("host", s.config.Host).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug().Str("toEmail", toEmail).Str("subject", subject).Msg("Email sent")
	return nil
}
