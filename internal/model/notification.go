package model

import "context"

// Notifier delivers a message to an applicant. Implementations may fail
// independently of persistence; callers decide whether the failure is fatal.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string, html bool) error
}
