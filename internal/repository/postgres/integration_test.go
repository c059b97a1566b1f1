//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openbanco/account-server/internal/model"
	repo "github.com/openbanco/account-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "accounts_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/accounts_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newAccount(ci string) model.Account {
	return model.Account{
		ID:        uuid.New(),
		Names:     "Maria Jose",
		Lastnames: "Perez Castro",
		CI:        ci,
		Email:     "maria@example.com",
		Sex:       "F",
		Age:       28,
		Reason:    "savings account",
	}
}

func TestAccountRepository_Workflow(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ar := repo.NewAccountRepository(conn)

	t.Run("create and read back", func(t *testing.T) {
		a := newAccount("1712340001")
		saved, err := ar.Create(ctx, a)
		require.NoError(t, err)
		require.Equal(t, a.ID, saved.ID)
		require.Empty(t, saved.PictureID)
		require.False(t, saved.CreatedAt.IsZero())

		byID, err := ar.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, a.CI, byID.CI)

		byCI, err := ar.GetByCI(ctx, a.CI)
		require.NoError(t, err)
		require.Equal(t, a.ID, byCI.ID)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := ar.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)

		_, err = ar.GetByCI(ctx, "0000000000")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("duplicate open account hits the unique index", func(t *testing.T) {
		a := newAccount("1712340002")
		_, err := ar.Create(ctx, a)
		require.NoError(t, err)

		dup := newAccount("1712340002")
		_, err = ar.Create(ctx, dup)
		require.ErrorIs(t, err, model.ErrCIExists)
	})

	t.Run("closed account frees the identity number", func(t *testing.T) {
		approved := true
		a := newAccount("1712340003")
		_, err := ar.Create(ctx, a)
		require.NoError(t, err)
		require.NoError(t, ar.UpdateFields(ctx, a.ID,
			model.AccountUpdate{FirstApprove: &approved, SecondApprove: &approved},
			model.AccountGuard{},
		))

		// Fully approved accounts fall out of the partial index, so a new
		// request with the same identity number is allowed again.
		reopened := newAccount("1712340003")
		saved, err := ar.Create(ctx, reopened)
		require.NoError(t, err)

		// The open request wins the lookup over the approved one.
		byCI, err := ar.GetByCI(ctx, "1712340003")
		require.NoError(t, err)
		require.Equal(t, saved.ID, byCI.ID)
	})

	t.Run("guarded update skips rows in the wrong state", func(t *testing.T) {
		a := newAccount("1712340004")
		_, err := ar.Create(ctx, a)
		require.NoError(t, err)

		approved, requested := true, false
		require.NoError(t, ar.UpdateFields(ctx, a.ID,
			model.AccountUpdate{FirstApprove: &approved},
			model.AccountGuard{FirstApprove: &requested},
		))

		// A second guarded transition sees first_approve already true.
		err = ar.UpdateFields(ctx, a.ID,
			model.AccountUpdate{FirstApprove: &approved},
			model.AccountGuard{FirstApprove: &requested},
		)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("picture reference is write-once under guard", func(t *testing.T) {
		a := newAccount("1712340005")
		_, err := ar.Create(ctx, a)
		require.NoError(t, err)

		approved, requested := true, false
		require.NoError(t, ar.UpdateFields(ctx, a.ID,
			model.AccountUpdate{FirstApprove: &approved},
			model.AccountGuard{FirstApprove: &requested},
		))

		key := uuid.NewString()
		require.NoError(t, ar.UpdateFields(ctx, a.ID,
			model.AccountUpdate{PictureID: &key},
			model.AccountGuard{FirstApprove: &approved, SecondApprove: &requested, PictureAbsent: true},
		))

		got, err := ar.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, key, got.PictureID)

		other := uuid.NewString()
		err = ar.UpdateFields(ctx, a.ID,
			model.AccountUpdate{PictureID: &other},
			model.AccountGuard{FirstApprove: &approved, SecondApprove: &requested, PictureAbsent: true},
		)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("list filters", func(t *testing.T) {
		requested := false
		news, err := ar.List(ctx, model.AccountFilter{FirstApprove: &requested})
		require.NoError(t, err)
		for _, a := range news {
			require.False(t, a.FirstApprove)
		}

		first, second, withPicture := true, false, true
		pending, err := ar.List(ctx, model.AccountFilter{
			FirstApprove:  &first,
			SecondApprove: &second,
			HasPicture:    &withPicture,
		})
		require.NoError(t, err)
		require.NotEmpty(t, pending)
		for _, a := range pending {
			require.True(t, a.FirstApprove)
			require.False(t, a.SecondApprove)
			require.NotEmpty(t, a.PictureID)
		}
	})

	t.Run("delete", func(t *testing.T) {
		a := newAccount("1712340006")
		_, err := ar.Create(ctx, a)
		require.NoError(t, err)

		require.NoError(t, ar.Delete(ctx, a.ID))
		require.ErrorIs(t, ar.Delete(ctx, a.ID), model.ErrNotFound)
	})
}

func TestConnection_Sessions(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	session, err := conn.AcquireSession(ctx)
	require.NoError(t, err)
	defer session.Release()

	a := newAccount("1712340007")
	saved, err := session.Accounts().Create(ctx, a)
	require.NoError(t, err)
	require.Equal(t, a.ID, saved.ID)

	// Another session observes the committed row.
	other, err := conn.AcquireSession(ctx)
	require.NoError(t, err)
	defer other.Release()

	got, err := other.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.CI, got.CI)
}
