package credential

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
)

// TestKeyStoreCreatesAndReloads verifies the pair is generated once and reloaded from disk.
func TestKeyStoreCreatesAndReloads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	ks, err := NewKeyStore(dir, nil)
	require.NoError(t, err)
	first, err := ks.KeyPair()
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, privateKeyFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(dir, publicKeyFile))
	require.NoError(t, err)

	reloaded, err := NewKeyStore(dir, nil)
	require.NoError(t, err)
	second, err := reloaded.KeyPair()
	require.NoError(t, err)
	require.Equal(t, first.Public, second.Public)
	require.Equal(t, first.Private, second.Private)
}

// TestKeyStoreConcurrentFirstUse verifies concurrent first callers observe one pair.
func TestKeyStoreConcurrentFirstUse(t *testing.T) {
	ks, err := NewKeyStore(t.TempDir(), nil)
	require.NoError(t, err)

	const n = 16
	pairs := make([]*KeyPair, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pairs[i], errs[i] = ks.KeyPair()
		}(i)
	}
	wg.Wait()

	for i := range pairs {
		require.NoError(t, errs[i])
		require.Equal(t, pairs[0].Public, pairs[i].Public)
	}
}

// TestKeyStoreHalfPairIsCorrupted verifies a lone key file is fatal.
func TestKeyStoreHalfPairIsCorrupted(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewKeyStore(dir, nil)
	require.NoError(t, err)
	_, err = ks.KeyPair()
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, publicKeyFile)))

	broken, err := NewKeyStore(dir, nil)
	require.NoError(t, err)
	_, err = broken.KeyPair()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorruptedKeyMaterial))
	require.True(t, vfs.IsCode(err, vfs.CodeInternal))
}

// TestKeyStoreMismatchedPairIsCorrupted verifies keys from different pairs are rejected.
func TestKeyStoreMismatchedPairIsCorrupted(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		ks, err := NewKeyStore(dir, nil)
		require.NoError(t, err)
		_, err = ks.KeyPair()
		require.NoError(t, err)
	}

	pubB, err := os.ReadFile(filepath.Join(dirB, publicKeyFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dirA, publicKeyFile), pubB, 0o644))

	ks, err := NewKeyStore(dirA, nil)
	require.NoError(t, err)
	_, err = ks.KeyPair()
	require.True(t, errors.Is(err, ErrCorruptedKeyMaterial))
}

// TestPasswordHashBindsUsername verifies hashes are deterministic and username bound.
func TestPasswordHashBindsUsername(t *testing.T) {
	hash := HashPassword("s3cret", "alice_01")
	require.Equal(t, hash, HashPassword("s3cret", "alice_01"))
	require.True(t, VerifyPassword("s3cret", "alice_01", hash))
	require.False(t, VerifyPassword("wrong", "alice_01", hash))
	require.False(t, VerifyPassword("s3cret", "alice_02", hash))
	require.False(t, VerifyPassword("s3cret", "alice_01", ""))
}

func newTestIssuer(t *testing.T, now *time.Time) *Issuer {
	t.Helper()
	ks, err := NewKeyStore(t.TempDir(), nil)
	require.NoError(t, err)
	issuer, err := NewIssuer(ks, 30*time.Minute, "laisky-vfs", func() time.Time { return *now })
	require.NoError(t, err)
	return issuer
}

// TestTokenRoundTrip verifies issued tokens verify back to the same identity.
func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer := newTestIssuer(t, &now)
	id := primitive.NewObjectID()

	token, err := issuer.IssueToken(id, "alice_01", model.RoleAdmin)
	require.NoError(t, err)

	identity, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, id, identity.AccountID)
	require.Equal(t, "alice_01", identity.Username)
	require.Equal(t, model.RoleAdmin, identity.Role)
}

// TestTokenExpiry verifies tokens stop verifying after their validity window.
func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer := newTestIssuer(t, &now)

	token, err := issuer.IssueToken(primitive.NewObjectID(), "alice_01", model.RoleUser)
	require.NoError(t, err)

	now = now.Add(29 * time.Minute)
	_, err = issuer.VerifyToken(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.VerifyToken(token)
	require.True(t, vfs.IsCode(err, vfs.CodeUnauthenticated))
}

// TestTokenFromForeignKey verifies tokens signed by another pair are rejected.
func TestTokenFromForeignKey(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, &now)
	other := newTestIssuer(t, &now)

	token, err := other.IssueToken(primitive.NewObjectID(), "mallory_1", model.RoleAdmin)
	require.NoError(t, err)

	_, err = issuer.VerifyToken(token)
	require.True(t, vfs.IsCode(err, vfs.CodeUnauthenticated))

	_, err = issuer.VerifyToken("")
	require.True(t, vfs.IsCode(err, vfs.CodeUnauthenticated))
	_, err = issuer.VerifyToken("not.a.token")
	require.True(t, vfs.IsCode(err, vfs.CodeUnauthenticated))
}
