// Package notification delivers customer-facing messages over email and SMS.
// Senders are best-effort: order and payment flows log delivery failures but
// never fail on them.
package notification

import "context"

// Notifier sends a message to a single destination (email address or
// phone number, depending on the implementation).
type Notifier interface {
	Send(ctx context.Context, destination, subject, body string) error
}

// Noop is a Notifier that discards all messages.
type Noop struct{}

func (Noop) Send(ctx context.Context, destination, subject, body string) error {
	return nil
}
