package credential

import (
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	ljwt "github.com/Laisky/laisky-vfs/library/jwt"
)

// Identity is what a verified token proves about its bearer.
type Identity struct {
	AccountID primitive.ObjectID
	Username  string
	Role      model.Role
}

// Issuer signs and verifies bearer tokens with the key store's pair.
type Issuer struct {
	keys   *KeyStore
	ttl    time.Duration
	issuer string
	clock  vfs.Clock
}

// NewIssuer returns a token issuer.
func NewIssuer(keys *KeyStore, ttl time.Duration, issuer string, clock vfs.Clock) (*Issuer, error) {
	if keys == nil {
		return nil, errors.New("key store is required")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("invalid token ttl %s", ttl)
	}
	if clock == nil {
		clock = vfs.DefaultClock
	}

	return &Issuer{keys: keys, ttl: ttl, issuer: issuer, clock: clock}, nil
}

// IssueToken returns a signed token for the account.
func (i *Issuer) IssueToken(accountID primitive.ObjectID, username string, role model.Role) (string, error) {
	pair, err := i.keys.KeyPair()
	if err != nil {
		return "", errors.Wrap(err, "load signing key")
	}

	now := i.clock()
	claims := &ljwt.AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AccountID: accountID.Hex(),
		Username:  username,
		Role:      string(role),
	}

	token, err := ljwt.Sign(pair.Private, claims)
	if err != nil {
		return "", errors.Wrap(err, "sign account token")
	}
	return token, nil
}

// VerifyToken checks signature, issuer and expiry and returns the identity.
// Every rejection is an unauthenticated error.
func (i *Issuer) VerifyToken(token string) (*Identity, error) {
	if token == "" {
		return nil, vfs.NewError(vfs.CodeUnauthenticated, "missing token")
	}

	pair, err := i.keys.KeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "load signing key")
	}

	claims := new(ljwt.AccountClaims)
	if err = ljwt.Parse(token, pair.Public, claims, i.clock, i.issuer); err != nil {
		return nil, vfs.Errorf(vfs.CodeUnauthenticated, "invalid token: %v", err)
	}

	accountID, err := primitive.ObjectIDFromHex(claims.AccountID)
	if err != nil || claims.Username == "" {
		return nil, vfs.NewError(vfs.CodeUnauthenticated, "invalid token claims")
	}

	role := model.Role(claims.Role)
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, vfs.NewError(vfs.CodeUnauthenticated, "invalid token role")
	}

	return &Identity{AccountID: accountID, Username: claims.Username, Role: role}, nil
}
