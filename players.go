package chat

import (
	"strings"
	"sync"
)

// A Roster is the set of online participants.
type Roster struct {
	mu      sync.RWMutex
	players map[Identity]Participant
}

func NewRoster() *Roster {
	return &Roster{players: make(map[Identity]Participant)}
}

// Add adds p to the roster, replacing any participant with the same Identity.
func (r *Roster) Add(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players[p.ID()] = p
}

func (r *Roster) Remove(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.players, id)
}

func (r *Roster) Get(id Identity) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	return p, ok
}

// Find returns the online participant with the given name.
// Names are compared case-insensitively.
func (r *Roster) Find(name string) Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.players {
		if strings.EqualFold(p.Name(), name) {
			return p
		}
	}

	return nil
}

// Online reports whether a participant is in the roster.
func (r *Roster) Online(id Identity) bool {
	_, ok := r.Get(id)
	return ok
}

// All returns a snapshot of the roster.
func (r *Roster) All() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ps := make([]Participant, 0, len(r.players))
	for _, p := range r.players {
		ps = append(ps, p)
	}

	return ps
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.players)
}
