package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openbanco/account-server/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

// querier is satisfied by both *pgxpool.Pool and *pgxpool.Conn so the
// repository can run against the shared pool or a session-scoped connection.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type AccountRepository struct {
	db querier
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

const accountColumns = `id, names, lastnames, ci, fingerprint_code, email, sex, age, reason,
	       COALESCE(picture_id, ''), first_approve, second_approve, created_at, updated_at`

func scanAccount(row pgx.Row) (model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.ID, &account.Names, &account.Lastnames, &account.CI, &account.FingerprintCode,
		&account.Email, &account.Sex, &account.Age, &account.Reason,
		&account.PictureID, &account.FirstApprove, &account.SecondApprove,
		&account.CreatedAt, &account.UpdatedAt,
	)
	return account, err
}

// GetByCI returns an account matching the identity number. When several
// match (an open request next to previously approved ones), the open account
// wins, then the most recent.
func (r *AccountRepository) GetByCI(ctx context.Context, ci string) (model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ci = $1
		ORDER BY (first_approve AND second_approve) ASC, created_at DESC
		LIMIT 1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, ci))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by ci: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// Create inserts the account. The partial unique index on open accounts
// turns a concurrent duplicate submission into a unique violation, which is
// reported as the duplicate-identity conflict.
func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	query := `
		INSERT INTO accounts (id, names, lastnames, ci, fingerprint_code, email, sex, age, reason,
		                      picture_id, first_approve, second_approve)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)
		RETURNING ` + accountColumns

	savedAccount, err := scanAccount(r.db.QueryRow(ctx, query,
		account.ID, account.Names, account.Lastnames, account.CI, account.FingerprintCode,
		account.Email, account.Sex, account.Age, account.Reason,
		account.PictureID, account.FirstApprove, account.SecondApprove,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Account{}, model.ErrCIExists
		}
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return savedAccount, nil
}

// UpdateFields applies a field-level partial update. The guard is rendered
// into the WHERE clause, so a row that a concurrent operation already moved
// out of the expected state is not touched and ErrNotFound is returned.
func (r *AccountRepository) UpdateFields(ctx context.Context, id uuid.UUID, update model.AccountUpdate, guard model.AccountGuard) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	idx := 2

	if update.FirstApprove != nil {
		sets = append(sets, fmt.Sprintf("first_approve = $%d", idx))
		args = append(args, *update.FirstApprove)
		idx++
	}
	if update.SecondApprove != nil {
		sets = append(sets, fmt.Sprintf("second_approve = $%d", idx))
		args = append(args, *update.SecondApprove)
		idx++
	}
	if update.PictureID != nil {
		sets = append(sets, fmt.Sprintf("picture_id = NULLIF($%d, '')", idx))
		args = append(args, *update.PictureID)
		idx++
	}

	if len(sets) == 1 {
		return fmt.Errorf("no fields to update")
	}

	conditions := []string{"id = $1"}
	if guard.FirstApprove != nil {
		conditions = append(conditions, fmt.Sprintf("first_approve = $%d", idx))
		args = append(args, *guard.FirstApprove)
		idx++
	}
	if guard.SecondApprove != nil {
		conditions = append(conditions, fmt.Sprintf("second_approve = $%d", idx))
		args = append(args, *guard.SecondApprove)
		idx++
	}
	if guard.PictureAbsent {
		conditions = append(conditions, "picture_id IS NULL")
	}

	query := fmt.Sprintf("UPDATE accounts SET %s WHERE %s",
		strings.Join(sets, ", "), strings.Join(conditions, " AND "))

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) List(ctx context.Context, filter model.AccountFilter) ([]model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts`

	conditions := []string{}
	args := []any{}
	idx := 1

	if filter.FirstApprove != nil {
		conditions = append(conditions, fmt.Sprintf("first_approve = $%d", idx))
		args = append(args, *filter.FirstApprove)
		idx++
	}
	if filter.SecondApprove != nil {
		conditions = append(conditions, fmt.Sprintf("second_approve = $%d", idx))
		args = append(args, *filter.SecondApprove)
		idx++
	}
	if filter.HasPicture != nil {
		if *filter.HasPicture {
			conditions = append(conditions, "picture_id IS NOT NULL")
		} else {
			conditions = append(conditions, "picture_id IS NULL")
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM accounts WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
