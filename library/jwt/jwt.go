// Package jwt signs and verifies EdDSA bearer tokens.
package jwt

import (
	"crypto/ed25519"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Sign returns the compact serialization of claims signed with key.
func Sign(key ed25519.PrivateKey, claims jwt.Claims) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", errors.New("invalid ed25519 private key")
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// Parse verifies token with key and decodes it into claims.
// Expiry is mandatory and checked against now.
func Parse(token string, key ed25519.PublicKey, claims jwt.Claims, now func() time.Time, issuer string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return errors.Wrap(err, "parse token")
	}
	return nil
}
