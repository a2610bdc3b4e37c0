// Package queue moves activation notifications through RabbitMQ so that mail
// delivery runs outside the signup request.
package queue

import (
	"time"

	"github.com/iliyamo/signup-activation/internal/notifier"
)

// ActivationQueueName is the durable queue carrying ActivationRequestedEvent.
const ActivationQueueName = "signup.activation_requested"

// ActivationRequestedEvent is published once per successful signup.  It holds
// everything the mailer needs, so the consumer never reads the database.
type ActivationRequestedEvent struct {
	ToEmail        string    `json:"to_email"`
	FirstName      string    `json:"first_name"`
	ActivationLink string    `json:"activation_link"`
	MigrationType  string    `json:"migration_type"`
	CompanyName    string    `json:"company_name"`
	ExpiresAt      time.Time `json:"expires_at"`
	RequestedAt    time.Time `json:"requested_at"`
}

func eventFromNotification(n notifier.Notification, now time.Time) ActivationRequestedEvent {
	return ActivationRequestedEvent{
		ToEmail:        n.ToEmail,
		FirstName:      n.FirstName,
		ActivationLink: n.ActivationLink,
		MigrationType:  n.MigrationType,
		CompanyName:    n.CompanyName,
		ExpiresAt:      n.ExpiresAt,
		RequestedAt:    now.UTC(),
	}
}

// Notification converts the event back into a notifier payload.
func (e ActivationRequestedEvent) Notification() notifier.Notification {
	return notifier.Notification{
		ToEmail:        e.ToEmail,
		FirstName:      e.FirstName,
		ActivationLink: e.ActivationLink,
		MigrationType:  e.MigrationType,
		CompanyName:    e.CompanyName,
		ExpiresAt:      e.ExpiresAt,
	}
}
