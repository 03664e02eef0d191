// Package mailer renders and dispatches transactional email. The engine only
// depends on the Sender contract; delivery itself is an external concern.
package mailer

import "context"

// Message is a rendered email ready for dispatch.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender dispatches a rendered message and reports failure synchronously so
// callers can distinguish delivery errors from storage errors.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
