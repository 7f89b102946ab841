// Package token mints the opaque single-use tokens used for activation and password reset.
package token

import (
	"crypto/rand"
	"encoding/base64"

	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
)

const size = 32

func New() (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", customErrors.WrapInternal(err, "generate token")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
