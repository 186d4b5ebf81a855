package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func claimsAt(now time.Time, ttl time.Duration) *AccountClaims {
	return &AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: "65f000000000000000000001",
		Username:  "alice_01",
		Role:      "user",
	}
}

// TestSignParseRoundTrip verifies claims survive signing and parsing.
func TestSignParseRoundTrip(t *testing.T) {
	pub, priv := newKey(t)
	now := time.Now()

	token, err := Sign(priv, claimsAt(now, time.Minute))
	require.NoError(t, err)

	got := new(AccountClaims)
	require.NoError(t, Parse(token, pub, got, func() time.Time { return now }, "test"))
	require.Equal(t, "alice_01", got.Username)
	require.Equal(t, "user", got.Role)
}

// TestParseRejectsForeignKeyAndExpiry verifies signature and expiry checks.
func TestParseRejectsForeignKeyAndExpiry(t *testing.T) {
	_, priv := newKey(t)
	otherPub, _ := newKey(t)
	now := time.Now()

	token, err := Sign(priv, claimsAt(now, time.Minute))
	require.NoError(t, err)

	require.Error(t, Parse(token, otherPub, new(AccountClaims), func() time.Time { return now }, ""))

	pub := priv.Public().(ed25519.PublicKey)
	require.Error(t, Parse(token, pub, new(AccountClaims), func() time.Time { return now.Add(2 * time.Minute) }, ""))
	require.Error(t, Parse(token, pub, new(AccountClaims), func() time.Time { return now }, "someone-else"))
}

// TestParseRequiresExpiry verifies tokens without exp are rejected.
func TestParseRequiresExpiry(t *testing.T) {
	pub, priv := newKey(t)
	claims := claimsAt(time.Now(), time.Minute)
	claims.ExpiresAt = nil

	token, err := Sign(priv, claims)
	require.NoError(t, err)
	require.Error(t, Parse(token, pub, new(AccountClaims), nil, ""))
}
