package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordSaltLen    = 16
	passwordIterations = 10000
	passwordKeyLen     = 64 // 512 bits
)

// Credentials is the salt and derived hash stored on a user record,
// both hex encoded.
type Credentials struct {
	Salt string
	Hash string
}

// SetPassword derives fresh credentials for the given password. A new salt
// is generated every time, so the previous credentials stop verifying.
func SetPassword(password string) (Credentials, error) {
	if password == "" {
		return Credentials{}, ErrNoEmptyString
	}

	raw := make([]byte, passwordSaltLen)
	if _, err := rand.Read(raw); err != nil {
		return Credentials{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate password salt")
	}

	salt := hex.EncodeToString(raw)

	return Credentials{
		Salt: salt,
		Hash: hex.EncodeToString(derivePasswordKey(password, salt)),
	}, nil
}

// VerifyPassword will validate the given cleartext password matches the
// stored hash. A mismatch is a plain false, never an error.
func VerifyPassword(password, salt, hash string) bool {
	if salt == "" || hash == "" {
		return false
	}

	expected, err := hex.DecodeString(hash)
	if err != nil || len(expected) != passwordKeyLen {
		return false
	}

	computed := derivePasswordKey(password, salt)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// the stored hex salt string is the KDF salt input, matching existing records
func derivePasswordKey(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), passwordIterations, passwordKeyLen, sha512.New)
}

// dummyCredentials are verified against when a login names an unknown user
// so both failure paths cost one KDF round.
var dummyCredentials = Credentials{
	Salt: "00000000000000000000000000000000",
	Hash: hex.EncodeToString(make([]byte, passwordKeyLen)),
}
