package chat

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

type mentionKey struct {
	mentioned, sender Identity
}

// A MentionParser highlights @name tokens in chat messages
// and notifies the mentioned participants.
type MentionParser struct {
	conf    MentionConfig
	pattern *regexp.Regexp
	caps    CapabilityChecker
	sched   Scheduler
	now     func() time.Time

	cooldowns sync.Map // mentionKey -> time.Time
	wg        sync.WaitGroup
}

// NewMentionParser returns a MentionParser. Notifications are
// delivered through sched.
func NewMentionParser(conf MentionConfig, caps CapabilityChecker, sched Scheduler) *MentionParser {
	if conf.Trigger == "" {
		conf.Trigger = defaultTrigger
	}

	return &MentionParser{
		conf:    conf,
		pattern: regexp.MustCompile(regexp.QuoteMeta(conf.Trigger) + `(\w+)`),
		caps:    caps,
		sched:   sched,
		now:     time.Now,
	}
}

func (mp *MentionParser) cooldown() time.Duration {
	return time.Duration(mp.conf.CooldownSecs * float64(time.Second))
}

// Rewrite highlights every token that names a member of the audience
// other than the sender and returns the rewritten text together with
// the mentioned participants, each listed once.
// Unresolved tokens and self-mentions are left untouched.
// Notifications are sent asynchronously.
func (mp *MentionParser) Rewrite(sender Participant, text string, audience []Participant) (string, []Participant) {
	if !mp.conf.Enabled || !strings.Contains(text, mp.conf.Trigger) {
		return text, nil
	}

	if mp.caps != nil && !mp.caps.Has(sender, PermMention) {
		return text, nil
	}

	byName := make(map[string]Participant, len(audience))
	for _, p := range audience {
		byName[strings.ToLower(p.Name())] = p
	}

	var mentioned []Participant
	seen := make(map[Identity]struct{})

	rewritten := mp.pattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[len(mp.conf.Trigger):]

		p, ok := byName[strings.ToLower(name)]
		if !ok || p.ID() == sender.ID() {
			return token
		}

		if _, dup := seen[p.ID()]; !dup {
			seen[p.ID()] = struct{}{}
			mentioned = append(mentioned, p)
		}

		return mp.conf.HighlightColor + token + "&r"
	})

	if len(mentioned) > 0 {
		mp.wg.Add(1)
		go func() {
			defer mp.wg.Done()
			mp.notifyAll(sender, mentioned, mp.now())
		}()
	}

	return rewritten, mentioned
}

func (mp *MentionParser) notifyAll(sender Participant, mentioned []Participant, now time.Time) {
	for _, p := range mentioned {
		if !mp.claim(mentionKey{mentioned: p.ID(), sender: sender.ID()}, now) {
			continue
		}

		p := p
		mp.sched.Schedule(func() {
			p.PlaySound(mp.conf.Sound)
			p.ActionBar(ParseStyled("&eYou were mentioned by &6" + sender.Name()))
		})
	}
}

// claim records a notification for key unless one was sent
// within the cooldown. It reports whether the caller may notify.
func (mp *MentionParser) claim(key mentionKey, now time.Time) bool {
	for {
		v, loaded := mp.cooldowns.LoadOrStore(key, now)
		if !loaded {
			return true
		}

		if now.Sub(v.(time.Time)) < mp.cooldown() {
			return false
		}

		if mp.cooldowns.CompareAndSwap(key, v, now) {
			return true
		}
	}
}

// Wait blocks until every pending notification has been scheduled.
func (mp *MentionParser) Wait() {
	mp.wg.Wait()
}

// Sweep drops cooldown entries older than twice the cooldown.
func (mp *MentionParser) Sweep(now time.Time) {
	horizon := 2 * mp.cooldown()
	mp.cooldowns.Range(func(k, v any) bool {
		if now.Sub(v.(time.Time)) > horizon {
			mp.cooldowns.CompareAndDelete(k, v)
		}

		return true
	})
}

// Forget drops every cooldown involving id.
func (mp *MentionParser) Forget(id Identity) {
	mp.cooldowns.Range(func(k, _ any) bool {
		if key := k.(mentionKey); key.mentioned == id || key.sender == id {
			mp.cooldowns.Delete(k)
		}

		return true
	})
}

func (mp *MentionParser) Clear() {
	mp.cooldowns.Clear()
}
