// Package notification defines the outbound mail contract used by the auth flows.
package notification

import "context"

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Mailer renders and dispatches the account lifecycle notices.
type Mailer interface {
	SendActivation(ctx context.Context, to, name, token string) error
	SendReset(ctx context.Context, to, name, token string) error
	// SendEmailChanged notifies the previous address that the account moved to newEmail.
	SendEmailChanged(ctx context.Context, oldEmail, name, newEmail string) error
}
