package chat

import (
	"time"

	"github.com/dustin/go-humanize"
)

const (
	placeholderTTL = 60 * time.Second
	teamTTL        = time.Second
	groupTTL       = time.Second
)

// A PlaytimeProvider reports how long participants have played.
type PlaytimeProvider interface {
	Playtime(id Identity) (time.Duration, error)
}

// A Team is a group of participants formed in game.
type Team struct {
	Name    string
	Owner   string
	Members int
}

// A TeamProvider reports team membership. Team returns nil
// if the participant is in no team.
type TeamProvider interface {
	Team(id Identity) (*Team, error)
}

type placeholderKey struct {
	id   Identity
	name string
}

// BuiltinPlaceholders provides the loc, item, name, zone, role,
// playtime and team placeholders. Slow lookups are cached per participant.
type BuiltinPlaceholders struct {
	Prefixes *PrefixCache
	Groups   GroupProvider
	Playtime PlaytimeProvider
	Teams    TeamProvider

	now   func() time.Time
	cache ttlCache[placeholderKey, string]
}

// Install registers the placeholders with pe.
// The team placeholder is only registered if Teams is set.
func (bp *BuiltinPlaceholders) Install(pe *PlaceholderEngine) {
	if bp.now == nil {
		bp.now = time.Now
	}

	pe.Register("loc", func(p Participant) (string, error) {
		return "&e" + formatBlockPos(p.Pos()) + "&r", nil
	})
	pe.RegisterRich("loc", bp.richLoc)

	pe.Register("item", plainItem)
	pe.RegisterRich("item", richItem)

	pe.Register("name", func(p Participant) (string, error) {
		return p.Name(), nil
	})

	pe.Register("zone", func(p Participant) (string, error) {
		return p.Zone(), nil
	})

	pe.RegisterRich("role", bp.richRole)

	pe.Register("playtime", func(p Participant) (string, error) {
		return bp.cached(p.ID(), "playtime", placeholderTTL, func() (string, error) {
			if bp.Playtime == nil {
				return "&7n/a&r", nil
			}

			d, err := bp.Playtime.Playtime(p.ID())
			if err != nil {
				return "", err
			}

			return "&b" + formatHours(d) + "h&r", nil
		})
	})

	if bp.Teams != nil {
		pe.Register("team", func(p Participant) (string, error) {
			return bp.cached(p.ID(), "team", teamTTL, func() (string, error) {
				team, err := bp.Teams.Team(p.ID())
				if err != nil {
					return "", err
				}

				if team == nil {
					return "&7none&r", nil
				}

				return "&a" + team.Name + "&r", nil
			})
		})
	}
}

func (bp *BuiltinPlaceholders) richLoc(p Participant) (Text, error) {
	if p.Zone() == "" {
		return nil, ErrNoLocation
	}

	coords := formatBlockPos(p.Pos())
	hover := Colored("Location Details\n", ColorGold).Append(
		Colored("Zone: ", ColorGray),
		Colored(p.Zone()+"\n", ColorWhite),
		Colored("Click to copy coordinates", ColorGray),
	)

	return Text{{
		Text:  coords,
		Color: ColorYellow,
		Hover: hover,
		Click: &Click{Action: ClickCopy, Value: coords},
	}}, nil
}

func (bp *BuiltinPlaceholders) richRole(p Participant) (Text, error) {
	var prefix string
	if bp.Prefixes != nil {
		prefix = bp.Prefixes.Get(p)
	}

	group, err := bp.cached(p.ID(), "group", groupTTL, func() (string, error) {
		if bp.Groups == nil {
			return "default", nil
		}

		return bp.Groups.Group(p)
	})
	if err != nil {
		return nil, err
	}

	out := ParseStyled(prefix)
	if len(out) == 0 {
		out = Colored("["+group+"]", ColorGray)
	}

	hover := Colored("Group: ", ColorGray).Append(Colored(group, ColorWhite))
	for i := range out {
		out[i].Hover = hover
	}

	return out, nil
}

func (bp *BuiltinPlaceholders) cached(id Identity, name string, ttl time.Duration, resolve func() (string, error)) (string, error) {
	key := placeholderKey{id: id, name: name}
	now := bp.now()
	if s, ok := bp.cache.get(key, now); ok {
		return s, nil
	}

	s, err := resolve()
	if err != nil {
		return "", err
	}

	bp.cache.put(key, s, now.Add(ttl))
	return s, nil
}

// Forget drops every cached value of a participant.
func (bp *BuiltinPlaceholders) Forget(id Identity) {
	bp.cache.deleteFunc(func(k placeholderKey) bool { return k.id == id })
}

// ForgetGroup drops the cached group of a participant.
func (bp *BuiltinPlaceholders) ForgetGroup(id Identity) {
	bp.cache.delete(placeholderKey{id: id, name: "group"})
}

// Sweep drops expired values.
func (bp *BuiltinPlaceholders) Sweep(now time.Time) {
	bp.cache.sweep(now)
}

func (bp *BuiltinPlaceholders) Clear() {
	bp.cache.clear()
}

// formatHours returns d in hours with at most one decimal
// and thousands separators.
func formatHours(d time.Duration) string {
	return humanize.CommafWithDigits(d.Hours(), 1)
}
