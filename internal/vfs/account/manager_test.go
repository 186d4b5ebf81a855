package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

func newTestManager(t *testing.T) (*Manager, *docdb.DB) {
	t.Helper()
	db, err := docdb.Open(context.Background(), docdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return NewManager(nil, func() time.Time { return now }), db
}

// TestCreateAndQueryAccount verifies accounts are created once and queried by name.
func TestCreateAndQueryAccount(t *testing.T) {
	m, db := newTestManager(t)

	require.NoError(t, db.Update(func(s docdb.Session) error {
		acc, err := m.CreateAccount(s, "alice_01", "hash", model.RoleUser)
		require.NoError(t, err)
		require.Equal(t, model.AccountStatusActivated, acc.Status)

		_, err = m.CreateAccount(s, "alice_01", "hash", model.RoleUser)
		require.True(t, vfs.IsCode(err, vfs.CodeAlreadyExists))

		_, err = m.CreateAccount(s, "ab", "hash", model.RoleUser)
		require.True(t, vfs.IsCode(err, vfs.CodeInvalidArgument))
		return nil
	}))

	require.NoError(t, db.View(func(s docdb.Session) error {
		acc, err := m.QueryAccount(s, "alice_01")
		require.NoError(t, err)
		require.Equal(t, "hash", acc.PasswordHash)

		byID, err := m.GetAccount(s, acc.ID)
		require.NoError(t, err)
		require.Equal(t, acc.Username, byID.Username)

		_, err = m.QueryAccount(s, "nobody_here")
		require.True(t, vfs.IsCode(err, vfs.CodeNotFound))
		return nil
	}))
}

// TestDeletedAccountIsInvisible verifies soft-deleted accounts drop out of lookups and free the name.
func TestDeletedAccountIsInvisible(t *testing.T) {
	m, db := newTestManager(t)

	require.NoError(t, db.Update(func(s docdb.Session) error {
		acc, err := m.CreateAccount(s, "alice_01", "hash", model.RoleUser)
		require.NoError(t, err)

		deleted, err := m.DeleteAccount(s, "alice_01")
		require.NoError(t, err)
		require.Equal(t, model.AccountStatusDeleted, deleted.Status)

		exists, err := m.ExistsUsername(s, "alice_01")
		require.NoError(t, err)
		require.False(t, exists)

		_, err = m.GetAccount(s, acc.ID)
		require.True(t, vfs.IsCode(err, vfs.CodeNotFound))

		_, err = m.CreateAccount(s, "alice_01", "hash2", model.RoleUser)
		require.NoError(t, err)
		return nil
	}))
}

// TestChangeUsernameAndPassword verifies rename collision handling and hash replacement.
func TestChangeUsernameAndPassword(t *testing.T) {
	m, db := newTestManager(t)

	require.NoError(t, db.Update(func(s docdb.Session) error {
		_, err := m.CreateAccount(s, "alice_01", "h1", model.RoleUser)
		require.NoError(t, err)
		_, err = m.CreateAccount(s, "bobby_02", "h2", model.RoleUser)
		require.NoError(t, err)

		_, err = m.ChangeUsername(s, "alice_01", "bobby_02", "")
		require.True(t, vfs.IsCode(err, vfs.CodeAlreadyExists))

		_, err = m.ChangeUsername(s, "alice_01", "x", "")
		require.True(t, vfs.IsCode(err, vfs.CodeInvalidArgument))

		acc, err := m.ChangeUsername(s, "alice_01", "alice_99", "h3")
		require.NoError(t, err)
		require.Equal(t, "h3", acc.PasswordHash)

		require.NoError(t, m.ChangePassword(s, "alice_99", "h4"))
		acc, err = m.QueryAccount(s, "alice_99")
		require.NoError(t, err)
		require.Equal(t, "h4", acc.PasswordHash)

		require.True(t, vfs.IsCode(m.ChangePassword(s, "alice_01", "h5"), vfs.CodeNotFound))
		return nil
	}))
}

// TestActivationCodesAreSingleUse verifies codes disappear once consumed.
func TestActivationCodesAreSingleUse(t *testing.T) {
	m, db := newTestManager(t)

	require.NoError(t, db.Update(func(s docdb.Session) error {
		codes, err := m.CreateActivationCodes(s, 3)
		require.NoError(t, err)
		require.Len(t, codes, 3)
		require.NotEqual(t, codes[0], codes[1])

		ok, err := m.ExistsActivationCode(s, codes[0])
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, m.ConsumeActivationCode(s, codes[0]))
		ok, err = m.ExistsActivationCode(s, codes[0])
		require.NoError(t, err)
		require.False(t, ok)

		require.True(t, vfs.IsCode(m.ConsumeActivationCode(s, codes[0]), vfs.CodeNotFound))

		ok, err = m.ExistsActivationCode(s, "")
		require.NoError(t, err)
		require.False(t, ok)

		_, err = m.CreateActivationCodes(s, 0)
		require.True(t, vfs.IsCode(err, vfs.CodeInvalidArgument))
		return nil
	}))
}
