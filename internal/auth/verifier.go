// Package auth verifies the admin password and manages server-side sessions.
package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// CredentialVerifier checks a submitted password.
type CredentialVerifier interface {
	Verify(password string) bool
}

var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Iteration and cost defaults applied by werkzeug when the method string
// omits them.
const (
	werkzeugPBKDF2Iterations = 260000
	werkzeugScryptN          = 1 << 15
	werkzeugScryptR          = 8
	werkzeugScryptP          = 1
	werkzeugScryptKeyLen     = 64
)

// PasswordVerifier checks passwords against a single stored hash. It accepts
// bcrypt hashes and the werkzeug "method$salt$hexdigest" formats
// (pbkdf2:<hash>[:iterations] and scrypt[:n:r:p]).
type PasswordVerifier struct {
	hash string
}

func NewPasswordVerifier(hash string) *PasswordVerifier {
	return &PasswordVerifier{hash: strings.TrimSpace(hash)}
}

// Verify reports whether password matches. An empty stored hash never matches.
func (v *PasswordVerifier) Verify(password string) bool {
	if v == nil || v.hash == "" {
		return false
	}
	ok, err := CheckPassword(v.hash, password)
	return err == nil && ok
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares password with stored, dispatching on the hash format.
func CheckPassword(stored, password string) (bool, error) {
	if strings.HasPrefix(stored, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}

	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}
	method, salt, digest := parts[0], parts[1], parts[2]
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false, ErrUnsupportedHash
	}

	got, err := deriveWerkzeug(method, []byte(salt), []byte(password))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func deriveWerkzeug(method string, salt, password []byte) ([]byte, error) {
	args := strings.Split(method, ":")
	switch args[0] {
	case "pbkdf2":
		if len(args) < 2 {
			return nil, ErrUnsupportedHash
		}
		h, size, err := hashFunc(args[1])
		if err != nil {
			return nil, err
		}
		iter := werkzeugPBKDF2Iterations
		if len(args) > 2 {
			if iter, err = strconv.Atoi(args[2]); err != nil || iter < 1 {
				return nil, ErrUnsupportedHash
			}
		}
		return pbkdf2.Key(password, salt, iter, size, h), nil
	case "scrypt":
		n, r, p := werkzeugScryptN, werkzeugScryptR, werkzeugScryptP
		if len(args) == 4 {
			var err1, err2, err3 error
			n, err1 = strconv.Atoi(args[1])
			r, err2 = strconv.Atoi(args[2])
			p, err3 = strconv.Atoi(args[3])
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, ErrUnsupportedHash
			}
		} else if len(args) != 1 {
			return nil, ErrUnsupportedHash
		}
		return scrypt.Key(password, salt, n, r, p, werkzeugScryptKeyLen)
	}
	return nil, ErrUnsupportedHash
}

func hashFunc(name string) (func() hash.Hash, int, error) {
	switch name {
	case "sha1":
		return sha1.New, sha1.Size, nil
	case "sha256":
		return sha256.New, sha256.Size, nil
	case "sha512":
		return sha512.New, sha512.Size, nil
	}
	return nil, 0, ErrUnsupportedHash
}
