package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbanco/account-server/internal/model"
)

var _ model.SessionPool = (*Connection)(nil)

// Session binds a dedicated pool connection to a single unit of work.
type Session struct {
	conn *pgxpool.Conn
}

// AcquireSession checks a connection out of the pool. The caller owns the
// session and must Release it when the unit of work finishes.
func (s *Connection) AcquireSession(ctx context.Context) (model.Session, error) {
	conn, err := s.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Accounts returns an account store bound to the session connection.
func (s *Session) Accounts() model.AccountStore {
	return &AccountRepository{db: s.conn}
}

// Release returns the connection to the pool.
func (s *Session) Release() {
	s.conn.Release()
}
