package domain

// Member represents one participant as the presence layer sees it.
// No transport or lifecycle logic here.
type Member struct {
	// Identifier is stable per user within a room; incognito users carry
	// a tagged identifier (see Identity).
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	// ConnRef is the transport-assigned per-connection token. A reconnect
	// of the same identifier gets a new ConnRef; the newer one supersedes.
	ConnRef string `json:"connRef"`
	// PrevConnRef is set when this member record replaces an earlier
	// connection of the same identifier. A join event carrying it is a
	// presence update, not a fresh join.
	PrevConnRef string `json:"prevConnRef,omitempty"`
	// JoinedAt is unix milliseconds recorded at presence registration.
	JoinedAt int64 `json:"joinedAt"`
	// PresenceLabel is a free-form status string ("online", "away", ...).
	PresenceLabel string `json:"presenceLabel,omitempty"`
}

// Reconnect reports whether the member record describes an existing
// identifier coming back on a fresh connection.
func (m Member) Reconnect() bool {
	return m.PrevConnRef != ""
}
