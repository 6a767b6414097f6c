// Package mailer renders and delivers queue messages over SMTP. It runs in
// the email_sender worker, never in the request path.
package mailer

import (
	"fmt"

	"auth_service/internal/models"
	"auth_service/internal/notify"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

// ErrUnknownPurpose is returned for messages this worker version cannot
// render. The consumer logs and drops them.
var ErrUnknownPurpose = fmt.Errorf("unknown message purpose")

func (m *Mailer) Send(msg models.Message) error {
	subject, body, err := render(msg)
	if err != nil {
		return err
	}

	mail := gomail.NewMessage()
	mail.SetHeader("To", msg.Email)
	mail.SetHeader("From", m.Username)
	mail.SetHeader("Subject", subject)
	mail.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(mail)
}

func render(msg models.Message) (subject, body string, err error) {
	switch msg.Purpose {
	case notify.PurposeEmailVerify:
		return "Verify your email address",
			"Welcome! Please confirm your email address by following this link:\n\n" +
				msg.Link + "\n\nThe link expires in one hour.",
			nil
	case notify.PurposePasswordReset:
		return "Reset your password",
			"A password reset was requested for your account. Follow this link to choose a new password:\n\n" +
				msg.Link + "\n\nThe link expires in one hour. If you did not request this, ignore this email.",
			nil
	case notify.PurposeWelcome:
		return "Welcome aboard",
			"Your account is ready. You signed in with Google, so your email is already verified.",
			nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownPurpose, msg.Purpose)
	}
}
