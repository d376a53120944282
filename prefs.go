package chat

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Prefs is the persisted per-participant chat state.
type Prefs struct {
	ChatModes map[Identity]ChatMode
	// DMEnabled holds explicit direct message settings.
	// Participants without an entry accept direct messages.
	DMEnabled map[Identity]bool
	// Ignores maps a participant to the set of participants
	// whose messages they don't want to see.
	Ignores map[Identity]map[Identity]struct{}
	Mutes   map[Identity]Mute
}

// NewPrefs returns empty Prefs.
func NewPrefs() Prefs {
	return Prefs{
		ChatModes: make(map[Identity]ChatMode),
		DMEnabled: make(map[Identity]bool),
		Ignores:   make(map[Identity]map[Identity]struct{}),
		Mutes:     make(map[Identity]Mute),
	}
}

func (p Prefs) clone() Prefs {
	c := NewPrefs()
	for id, mode := range p.ChatModes {
		c.ChatModes[id] = mode
	}

	for id, enabled := range p.DMEnabled {
		c.DMEnabled[id] = enabled
	}

	for id, ignored := range p.Ignores {
		set := make(map[Identity]struct{}, len(ignored))
		for other := range ignored {
			set[other] = struct{}{}
		}

		c.Ignores[id] = set
	}

	for id, m := range p.Mutes {
		c.Mutes[id] = m
	}

	return c
}

// A PrefsBackend persists Prefs. Save replaces everything stored.
type PrefsBackend interface {
	Load() (Prefs, error)
	Save(p Prefs) error
	Close() error
}

// OpenPrefsBackend opens a backend by name.
// Supported names are files, sqlite3, sqlite and postgresql.
// dsn is a directory for files, a database file for the
// sqlite backends and a connection string for postgresql.
func OpenPrefsBackend(name, dsn string) (PrefsBackend, error) {
	switch name {
	case "files":
		if dsn == "" {
			dsn = Path("prefs")
		}

		return NewPrefsFiles(dsn)
	case "sqlite3", "sqlite":
		if dsn == "" {
			dsn = Path("prefs.sqlite")
		}

		return NewPrefsSQLite(name, dsn)
	case "postgresql":
		return NewPrefsPostgreSQL(dsn)
	}

	return nil, fmt.Errorf("invalid preference backend %q", name)
}

// MemoryPrefs is a PrefsBackend that keeps everything in memory.
type MemoryPrefs struct {
	mu    sync.Mutex
	prefs Prefs
	saves int
}

func (mp *MemoryPrefs) Load() (Prefs, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.prefs.ChatModes == nil {
		return NewPrefs(), nil
	}

	return mp.prefs.clone(), nil
}

func (mp *MemoryPrefs) Save(p Prefs) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.prefs = p.clone()
	mp.saves++
	return nil
}

func (mp *MemoryPrefs) Close() error { return nil }

// Preferences is the in-memory view of a PrefsBackend.
// Every change is saved immediately and rolled back
// if saving fails.
type Preferences struct {
	mu      sync.RWMutex
	backend PrefsBackend
	prefs   Prefs
	now     func() time.Time
	logger  *log.Logger
}

// NewPreferences loads the preferences stored in backend.
func NewPreferences(backend PrefsBackend) (*Preferences, error) {
	prefs, err := backend.Load()
	if err != nil {
		return nil, err
	}

	return &Preferences{
		backend: backend,
		prefs:   prefs,
		now:     time.Now,
		logger:  newLogger("prefs"),
	}, nil
}

// update applies change to a copy of the preferences and saves it.
func (ps *Preferences) update(change func(p *Prefs)) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	next := ps.prefs.clone()
	change(&next)

	if err := ps.backend.Save(next); err != nil {
		ps.logger.Println("save failed:", err)
		return err
	}

	ps.prefs = next
	return nil
}

// ChatMode returns the chat mode of a participant, ModeLocal by default.
func (ps *Preferences) ChatMode(id Identity) ChatMode {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return ps.prefs.ChatModes[id]
}

func (ps *Preferences) SetChatMode(id Identity, mode ChatMode) error {
	return ps.update(func(p *Prefs) { p.ChatModes[id] = mode })
}

// DMEnabled reports whether a participant accepts direct messages.
func (ps *Preferences) DMEnabled(id Identity) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	enabled, ok := ps.prefs.DMEnabled[id]
	return !ok || enabled
}

func (ps *Preferences) SetDMEnabled(id Identity, enabled bool) error {
	return ps.update(func(p *Prefs) { p.DMEnabled[id] = enabled })
}

// IsIgnoring reports whether recipient ignores sender.
func (ps *Preferences) IsIgnoring(recipient, sender Identity) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	_, ok := ps.prefs.Ignores[recipient][sender]
	return ok
}

// Ignore makes id ignore other.
func (ps *Preferences) Ignore(id, other Identity) error {
	return ps.update(func(p *Prefs) {
		if p.Ignores[id] == nil {
			p.Ignores[id] = make(map[Identity]struct{})
		}

		p.Ignores[id][other] = struct{}{}
	})
}

func (ps *Preferences) Unignore(id, other Identity) error {
	return ps.update(func(p *Prefs) {
		delete(p.Ignores[id], other)
		if len(p.Ignores[id]) == 0 {
			delete(p.Ignores, id)
		}
	})
}

// Ignored returns the participants id ignores.
func (ps *Preferences) Ignored(id Identity) []Identity {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var out []Identity
	for other := range ps.prefs.Ignores[id] {
		out = append(out, other)
	}

	return out
}

// Mute stores a mute, replacing any previous one.
func (ps *Preferences) Mute(m Mute) error {
	return ps.update(func(p *Prefs) { p.Mutes[m.ID] = m })
}

func (ps *Preferences) Unmute(id Identity) error {
	return ps.update(func(p *Prefs) { delete(p.Mutes, id) })
}

// ActiveMute returns the mute in effect for id or nil.
func (ps *Preferences) ActiveMute(id Identity) (*Mute, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	m, ok := ps.prefs.Mutes[id]
	if !ok || !m.Active(ps.now()) {
		return nil, nil
	}

	return &m, nil
}

func (ps *Preferences) IsMuted(id Identity) (bool, error) {
	m, err := ps.ActiveMute(id)
	return m != nil, err
}

// Reload replaces the in-memory view with the stored preferences.
func (ps *Preferences) Reload() error {
	prefs, err := ps.backend.Load()
	if err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.prefs = prefs
	return nil
}

// Flush saves the in-memory view, dropping expired mutes.
func (ps *Preferences) Flush() error {
	now := ps.now()
	return ps.update(func(p *Prefs) {
		for id, m := range p.Mutes {
			if !m.Active(now) {
				delete(p.Mutes, id)
			}
		}
	})
}

// Close flushes and closes the backend.
func (ps *Preferences) Close() error {
	if err := ps.Flush(); err != nil {
		ps.backend.Close()
		return err
	}

	return ps.backend.Close()
}
