package domain

import (
	"slices"
	"strings"
	"time"
)

// DefaultAuthority is granted to every newly registered account.
const DefaultAuthority = "ROLE_USER"

type User struct {
	ID           string
	Email        string // normalised; also the token subject
	Nickname     string
	PasswordHash string // argon2id PHC, or bcrypt for imported accounts
	Authorities  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAuthority reports whether u was granted a.
func (u User) HasAuthority(a string) bool {
	return slices.Contains(u.Authorities, a)
}

// NormalizeEmail is the canonical form used for lookups and as the subject.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Credential is what login needs to know about a subject.
type Credential struct {
	Subject      string
	PasswordHash string
	Authorities  []string
}

// Identity is the verified caller behind an access token.
type Identity struct {
	Subject     string
	Authorities []string
}
