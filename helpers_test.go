package chat

import (
	"sync"
	"time"

	"github.com/HimbeerserverDE/mt"
)

type fakeParticipant struct {
	id   Identity
	name string

	mu      sync.Mutex
	zone    string
	pos     mt.Pos
	texts   []Text
	notices []Text
	bars    []Text
	sounds  []string
	kicked  string
}

func newFakeParticipant(name, zone string, pos mt.Pos) *fakeParticipant {
	return &fakeParticipant{
		id:   IdentityFor(name),
		name: name,
		zone: zone,
		pos:  pos,
	}
}

func (p *fakeParticipant) ID() Identity { return p.id }
func (p *fakeParticipant) Name() string { return p.name }

func (p *fakeParticipant) Zone() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.zone
}

func (p *fakeParticipant) Pos() mt.Pos {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pos
}

func (p *fakeParticipant) SendText(t Text) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.texts = append(p.texts, t)
}

func (p *fakeParticipant) SendNotice(t Text) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notices = append(p.notices, t)
}

func (p *fakeParticipant) ActionBar(t Text) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bars = append(p.bars, t)
}

func (p *fakeParticipant) PlaySound(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sounds = append(p.sounds, name)
}

func (p *fakeParticipant) Kick(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.kicked = reason
}

func (p *fakeParticipant) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, t := range p.texts {
		out = append(out, t.Plain())
	}

	return out
}

func (p *fakeParticipant) noticed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, t := range p.notices {
		out = append(out, t.Plain())
	}

	return out
}

func (p *fakeParticipant) soundsPlayed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.sounds...)
}

func (p *fakeParticipant) kickReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.kicked
}

// syncScheduler runs tasks immediately.
type syncScheduler struct{}

func (syncScheduler) Schedule(task func()) { task() }

// fakeCaps grants every capability except the denied ones.
type fakeCaps struct {
	mu     sync.Mutex
	denied map[Identity]map[string]bool
}

func (fc *fakeCaps) deny(p Participant, perms ...string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.denied == nil {
		fc.denied = make(map[Identity]map[string]bool)
	}

	if fc.denied[p.ID()] == nil {
		fc.denied[p.ID()] = make(map[string]bool)
	}

	for _, perm := range perms {
		fc.denied[p.ID()][perm] = true
	}
}

func (fc *fakeCaps) Has(p Participant, perm string) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	return !fc.denied[p.ID()][perm]
}

// countingPerms returns fixed styles and counts lookups.
type countingPerms struct {
	mu      sync.Mutex
	prefix  string
	suffix  string
	group   string
	err     error
	lookups int
}

func (cp *countingPerms) PrefixSuffix(Participant) (string, string, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	cp.lookups++
	return cp.prefix, cp.suffix, cp.err
}

func (cp *countingPerms) Group(Participant) (string, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	return cp.group, cp.err
}

func (cp *countingPerms) count() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	return cp.lookups
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func mtPos(x, y, z float32) mt.Pos { return mt.Pos{x, y, z} }
