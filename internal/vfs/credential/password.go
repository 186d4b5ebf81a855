package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32

	saltDomain = "laisky-vfs/password/v1:"
)

// HashPassword derives the stored hash of password. The salt is taken from
// username, so a hash only verifies under the name it was made for.
func HashPassword(password, username string) string {
	salt := sha256.Sum256([]byte(saltDomain + username))
	key := argon2.IDKey([]byte(password), salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.RawStdEncoding.EncodeToString(key)
}

// VerifyPassword reports whether password hashes to hash under username.
func VerifyPassword(password, username, hash string) bool {
	if hash == "" {
		return false
	}
	got := HashPassword(password, username)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}
