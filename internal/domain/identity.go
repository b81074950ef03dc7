// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxIdentifierLen = 64
	MaxUsernameLen   = 36

	// incognitoTag marks identifiers of incognito-mode accounts.
	incognitoTag = "anon:"
)

var (
	ErrUsernameTooLong   = errors.New("username too long")
	ErrUsernameEmpty     = errors.New("username empty")
	ErrIdentifierTooLong = errors.New("identifier too long")
)

// Identity is who a connected client claims to be for the duration of a
// room. The identifier is stable across reconnects of the same user; the
// transport assigns a fresh connection ref each time (see Member).
type Identity struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(identifier, username string) (Identity, error) {
	if len(username) == 0 {
		return Identity{}, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return Identity{}, ErrUsernameTooLong
	}
	if len(identifier) > MaxIdentifierLen {
		return Identity{}, ErrIdentifierTooLong
	}
	return Identity{Identifier: identifier, Username: username}, nil
}

// IncognitoIdentity tags the identifier so downstream checks can tell an
// incognito account apart without a separate flag on the wire.
func IncognitoIdentity(identifier, username string) (Identity, error) {
	id, err := NewIdentity(incognitoTag+identifier, username)
	if err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Incognito reports whether the identity belongs to an incognito account.
func (id Identity) Incognito() bool {
	return strings.HasPrefix(id.Identifier, incognitoTag)
}

// Guest reports whether the identity is an unauthenticated guest.
func (id Identity) Guest() bool {
	return id.Identifier == ""
}
