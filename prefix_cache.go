package chat

import (
	"log"
	"time"
)

// A PrefixCache caches the composed rank prefix of participants.
// Provider failures degrade to an empty prefix.
type PrefixCache struct {
	provider PermissionProvider
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger

	entries ttlCache[Identity, string]
}

// NewPrefixCache returns a PrefixCache backed by provider.
// A nil provider yields empty prefixes.
func NewPrefixCache(provider PermissionProvider, ttl time.Duration) *PrefixCache {
	return &PrefixCache{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		logger:   newLogger("prefix"),
	}
}

// Get returns the prefix and suffix of p joined by a space,
// querying the provider only if there is no live entry.
func (pc *PrefixCache) Get(p Participant) string {
	now := pc.now()
	if prefix, ok := pc.entries.get(p.ID(), now); ok {
		return prefix
	}

	prefix := pc.lookup(p)
	pc.entries.put(p.ID(), prefix, now.Add(pc.ttl))

	return prefix
}

func (pc *PrefixCache) lookup(p Participant) string {
	if pc.provider == nil {
		return ""
	}

	prefix, suffix, err := pc.provider.PrefixSuffix(p)
	if err != nil {
		pc.logger.Println("lookup", p.Name(), "failed:", err)
		return ""
	}

	switch {
	case prefix == "":
		return suffix
	case suffix == "":
		return prefix
	default:
		return prefix + " " + suffix
	}
}

// Invalidate drops the entry of a participant.
func (pc *PrefixCache) Invalidate(id Identity) {
	pc.entries.delete(id)
}

func (pc *PrefixCache) Clear() {
	pc.entries.clear()
}

// Sweep drops expired entries and those of offline participants.
func (pc *PrefixCache) Sweep(online func(Identity) bool) {
	pc.entries.sweep(pc.now())
	pc.entries.deleteFunc(func(id Identity) bool { return !online(id) })
}
