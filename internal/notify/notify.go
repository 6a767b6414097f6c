// Package notify hands outbound mail to the queue. The auth flows only
// enqueue; delivery, retries and SMTP are the email_sender worker's problem.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"auth_service/internal/models"
)

const (
	PurposeEmailVerify   = "email_verification"
	PurposePasswordReset = "password_reset"
	PurposeWelcome       = "welcome"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Dispatcher struct {
	pub Publisher
	// baseURL is the public address of the auth service; action links in
	// mail point back at it.
	baseURL string
}

func New(pub Publisher, baseURL string) *Dispatcher {
	return &Dispatcher{pub: pub, baseURL: baseURL}
}

// SendVerificationLink enqueues the email-verification mail for a freshly
// minted action token.
func (d *Dispatcher) SendVerificationLink(ctx context.Context, email, token string) error {
	return d.pub.SendMessage(ctx, models.Message{
		Email:   email,
		Link:    fmt.Sprintf("%s/verify-email?token=%s", d.baseURL, url.QueryEscape(token)),
		Purpose: PurposeEmailVerify,
	})
}

// SendResetLink enqueues the password-reset mail.
func (d *Dispatcher) SendResetLink(ctx context.Context, email, token string) error {
	return d.pub.SendMessage(ctx, models.Message{
		Email:   email,
		Link:    fmt.Sprintf("%s/verify-reset-token?token=%s", d.baseURL, url.QueryEscape(token)),
		Purpose: PurposePasswordReset,
	})
}

// SendWelcome enqueues the welcome mail for accounts created via OAuth.
// No link: nothing to act on.
func (d *Dispatcher) SendWelcome(ctx context.Context, email string) error {
	return d.pub.SendMessage(ctx, models.Message{
		Email:   email,
		Purpose: PurposeWelcome,
	})
}
