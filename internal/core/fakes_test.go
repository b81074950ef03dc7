package core_test

import (
	"context"
	"sync"

	"github.com/filmgrain/groupwatch/internal/core"
	"github.com/filmgrain/groupwatch/internal/domain"
	"github.com/filmgrain/groupwatch/internal/protocol"
)

// fakeTransport records outbound traffic and lets tests feed events in.
type fakeTransport struct {
	mu       sync.Mutex
	shouts   []protocol.Message
	whispers []any
	connects int
	connErr  error
	events   chan core.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan core.Event, 16)}
}

func (f *fakeTransport) Connect(_ context.Context, _ string, _ domain.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connErr
}

func (f *fakeTransport) Disconnect(string) error { return nil }

func (f *fakeTransport) Shout(msg protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shouts = append(f.shouts, msg)
	return nil
}

func (f *fakeTransport) Whisper(_ string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whispers = append(f.whispers, payload)
	return nil
}

func (f *fakeTransport) Events() <-chan core.Event { return f.events }

func (f *fakeTransport) Shouts() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Message(nil), f.shouts...)
}

func (f *fakeTransport) ShoutsOf(action protocol.Action) []protocol.Message {
	var out []protocol.Message
	for _, m := range f.Shouts() {
		if m.Action == action {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) ConnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// fakePlayer records every remote command applied to it.
type fakePlayer struct {
	mu       sync.Mutex
	position float64
	paused   bool
	plays    []float64
	pauses   int
	seeks    []float64
	nexts    []string
}

func newFakePlayer(position float64, paused bool) *fakePlayer {
	return &fakePlayer{position: position, paused: paused}
}

func (p *fakePlayer) ApplyRemotePlay(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
	p.paused = false
	p.plays = append(p.plays, pos)
}

func (p *fakePlayer) ApplyRemotePause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	p.pauses++
}

func (p *fakePlayer) ApplyRemoteSeek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
	p.seeks = append(p.seeks, pos)
}

func (p *fakePlayer) ApplyRemoteNext(location string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = 0
	p.paused = false
	p.nexts = append(p.nexts, location)
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// recordingNotifier collects user-visible lines.
type recordingNotifier struct {
	mu      sync.Mutex
	entries []core.LogEntry
}

func (n *recordingNotifier) Notify(e core.LogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, e)
}

func (n *recordingNotifier) Entries() []core.LogEntry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.LogEntry(nil), n.entries...)
}

// fakeAssociator records association calls and can fail them.
type fakeAssociator struct {
	mu    sync.Mutex
	calls []domain.RoomKey
	err   error
}

func (a *fakeAssociator) Associate(_ context.Context, _ string, key domain.RoomKey) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, key)
	return a.err
}

func (a *fakeAssociator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func member(identifier, username string, joinedAt int64) domain.Member {
	return domain.Member{
		Identifier: identifier,
		Username:   username,
		ConnRef:    "ref-" + identifier,
		JoinedAt:   joinedAt,
	}
}
