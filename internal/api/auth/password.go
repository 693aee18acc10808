package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is out of bcrypt's range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when no stored digest exists so unknown emails cost
	// the same as a wrong password.
	dummy, err := bcrypt.GenerateFromPassword([]byte("blog-api-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return &PasswordHasher{cost: cost, dummy: dummy}
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", types.NewError(types.ErrValidation, "Password is required")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", types.NewError(types.ErrValidation, "Password must be at most 72 bytes")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. An empty digest is
// checked against the dummy hash and always fails.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
