package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/domain"
)

// Roster tracks who is in the room. Presence snapshots are the only
// source of membership truth and replace the whole view; discrete
// join/leave events drive user-visible notices and nothing else, so a
// diff arriving ahead of the snapshot can never skew membership or the
// leadership derived from it.
type Roster struct {
	mu    sync.Mutex
	local string // local member's identifier
	byID  map[string]domain.Member
	// identifiers already announced as joined, kept so duplicate diffs
	// stay silent until the member actually leaves
	announced map[string]struct{}
	notif     Notifier
	changed   func([]domain.Member)
}

// NewRoster builds a tracker for the given local identifier. changed is
// invoked with the fresh member list after every snapshot; the
// coordinator hangs leader recomputation off it.
func NewRoster(localIdentifier string, notif Notifier, changed func([]domain.Member)) *Roster {
	if notif == nil {
		notif = NopNotifier{}
	}
	if changed == nil {
		changed = func([]domain.Member) {}
	}
	return &Roster{
		local:     localIdentifier,
		byID:      make(map[string]domain.Member),
		announced: make(map[string]struct{}),
		notif:     notif,
		changed:   changed,
	}
}

// Members returns the current view ordered by JoinedAt ascending,
// identifier as tiebreak.
func (r *Roster) Members() []domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Roster) snapshotLocked() []domain.Member {
	out := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt != out[j].JoinedAt {
			return out[i].JoinedAt < out[j].JoinedAt
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// HandleJoin announces a discrete join. Notification only: membership
// waits for the next snapshot. A record carrying a previous connection
// ref is a presence update for an existing identifier, not a join, and
// produces no notice. The local member's own (re)join is also silent.
func (r *Roster) HandleJoin(m domain.Member) {
	r.mu.Lock()
	_, known := r.announced[m.Identifier]
	if !known {
		_, known = r.byID[m.Identifier]
	}
	r.announced[m.Identifier] = struct{}{}
	r.mu.Unlock()

	if m.Reconnect() || known || m.Identifier == r.local {
		return
	}
	r.notif.Notify(LogEntry{
		Message: fmt.Sprintf("%s has joined", m.Username),
		System:  true,
	})
}

// HandleLeave announces a discrete leave. Notification only. Unknown
// identifiers are ignored, and a stale leave for a superseded
// connection stays silent; the next snapshot settles any disagreement.
func (r *Roster) HandleLeave(m domain.Member) {
	r.mu.Lock()
	current, inView := r.byID[m.Identifier]
	_, known := r.announced[m.Identifier]
	known = known || inView
	stale := inView && current.ConnRef != m.ConnRef
	if !stale {
		delete(r.announced, m.Identifier)
	}
	r.mu.Unlock()

	if stale || !known || m.Identifier == r.local {
		return
	}
	r.notif.Notify(LogEntry{
		Message: fmt.Sprintf("%s has left", m.Username),
		System:  true,
	})
}

// HandleSnapshot replaces the whole view with the transport's latest
// presence snapshot. Duplicate identifiers (reconnect races) resolve to
// the entry with the newest JoinedAt. The announcement set is
// reconciled to the snapshot so a member who vanished silently can be
// announced again on a later join.
func (r *Roster) HandleSnapshot(members []domain.Member) {
	r.mu.Lock()
	fresh := make(map[string]domain.Member, len(members))
	announced := make(map[string]struct{}, len(members))
	for _, m := range members {
		if prev, dup := fresh[m.Identifier]; dup && prev.JoinedAt > m.JoinedAt {
			continue
		}
		fresh[m.Identifier] = m
		announced[m.Identifier] = struct{}{}
	}
	r.byID = fresh
	r.announced = announced
	view := r.snapshotLocked()
	r.mu.Unlock()

	log.Debug().Str("module", "core.roster").Int("members", len(view)).Msg("presence snapshot applied")
	r.changed(view)
}
