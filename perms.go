package chat

import "strings"

// A CapabilityChecker decides whether a participant may do something.
type CapabilityChecker interface {
	Has(p Participant, perm string) bool
}

// A PermissionProvider supplies the raw rank prefix and suffix
// of a participant. Both may contain style codes.
type PermissionProvider interface {
	PrefixSuffix(p Participant) (prefix, suffix string, err error)
}

// A GroupProvider supplies the primary group of a participant.
type GroupProvider interface {
	Group(p Participant) (string, error)
}

// ConfPerms implements CapabilityChecker, PermissionProvider
// and GroupProvider using the Groups, UserGroups and GroupStyles
// sections of the configuration.
type ConfPerms struct {
	conf func() Config
}

// NewConfPerms returns a ConfPerms that reads the configuration
// through conf on every call. If conf is nil, Conf is used.
func NewConfPerms(conf func() Config) ConfPerms {
	if conf == nil {
		conf = Conf
	}

	return ConfPerms{conf: conf}
}

// Group returns the group of the participant, "default" if none is set.
func (cp ConfPerms) Group(p Participant) (string, error) {
	grp, ok := cp.conf().UserGroups[p.Name()]
	if !ok {
		grp = "default"
	}

	return grp, nil
}

// Perms returns the raw permissions of the participant.
func (cp ConfPerms) Perms(p Participant) []string {
	if p.Name() == "" {
		return []string{}
	}

	grp, _ := cp.Group(p)
	if perms, ok := cp.conf().Groups[grp]; ok {
		return perms
	}

	return []string{}
}

// Has reports whether the participant has the specified permission.
// Wildcards may only be used at the end of a raw permission.
// Asterisks in other places are treated as regular characters.
func (cp ConfPerms) Has(p Participant, want string) bool {
	if want == "" {
		return true
	}

	for _, perm := range cp.Perms(p) {
		if strings.HasSuffix(perm, "*") {
			if strings.HasPrefix(want, perm[:len(perm)-1]) {
				return true
			}
		} else if perm == want {
			return true
		}
	}

	return false
}

// PrefixSuffix returns the style of the participant's group.
func (cp ConfPerms) PrefixSuffix(p Participant) (string, string, error) {
	grp, _ := cp.Group(p)
	style := cp.conf().GroupStyles[grp]

	return style.Prefix, style.Suffix, nil
}
