package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	HashRounds = 250_000
	HashLength = 64
	SaltLength = 64

	fallbackSaltPepper = "comfyforum"
)

// randReader is the salt source; tests swap it out.
var randReader io.Reader = rand.Reader

// DeriveHash derives the stored password hash using PBKDF2-HMAC-SHA512.
// The salt is used as its hex text, not the decoded bytes.
func DeriveHash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), HashRounds, HashLength, sha512.New)
	return hex.EncodeToString(key)
}

func Verify(candidate, salt, expectedHash string) bool {
	got := DeriveHash(candidate, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHash)) == 1
}

// GenerateSalt returns SaltLength random bytes, hex encoded. If the random
// source fails it falls back to a SHA-512 of username and password, which is
// weak and only kept so signup never fails on entropy.
func GenerateSalt(username, password string) string {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(randReader, salt); err == nil {
		return hex.EncodeToString(salt)
	}

	sum := sha512.Sum512([]byte(username + password + fallbackSaltPepper))
	return hex.EncodeToString(sum[:])
}
