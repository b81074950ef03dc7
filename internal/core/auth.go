package core

import "github.com/filmgrain/groupwatch/internal/domain"

// AccountGate is the default authorizer: signed-in, non-incognito
// accounts only. Applications with richer entitlement checks supply
// their own Authorizer.
type AccountGate struct{}

func (AccountGate) CanGroupWatch(id domain.Identity) bool {
	return !id.Guest() && !id.Incognito()
}
