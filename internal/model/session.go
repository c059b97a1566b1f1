package model

import "context"

// Session is a resource handle scoped to a single unit of work. Accounts
// returns a store bound to the underlying handle; Release must be called
// exactly once when the unit of work finishes.
type Session interface {
	Accounts() AccountStore
	Release()
}

// SessionPool hands out sessions for workflow units of work.
type SessionPool interface {
	AcquireSession(ctx context.Context) (Session, error)
}
