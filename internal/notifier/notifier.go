// Package notifier delivers activation links out of band.  Delivery is best
// effort: callers log a failed Send and keep the stored signup.
package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"
)

// ErrNotConfigured is returned when a notifier lacks the credentials it
// needs to deliver.
var ErrNotConfigured = errors.New("notifier not configured")

// Notification is everything an activation email needs.
type Notification struct {
	ToEmail        string    `json:"to_email"`
	FirstName      string    `json:"first_name"`
	ActivationLink string    `json:"activation_link"`
	MigrationType  string    `json:"migration_type"`
	CompanyName    string    `json:"company_name"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Notifier sends a Notification.  A nil error means the message was accepted
// by the delivery channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes the activation link to the log instead of sending mail.
// It is meant for local development.
type LogNotifier struct {
	Log *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier { return &LogNotifier{Log: logger} }

func (n *LogNotifier) Send(_ context.Context, msg Notification) error {
	n.Log.Infoj(log.JSON{
		"event":      "activation_link_issued",
		"email":      msg.ToEmail,
		"company":    msg.CompanyName,
		"migration":  msg.MigrationType,
		"expires_at": msg.ExpiresAt,
		"link":       msg.ActivationLink,
	})
	return nil
}
