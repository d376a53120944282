package chat

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	chatModesFile  = "chatmodes.yml"
	dmSettingsFile = "dmsettings.yml"
	ignoreListFile = "ignorelist.yml"
	mutesFile      = "mutes.yml"
)

// PrefsFiles stores preferences as YAML files in a directory.
type PrefsFiles struct {
	dir string
}

type muteRecord struct {
	Until  int64  `yaml:"until,omitempty"`
	Reason string `yaml:"reason,omitempty"`
	Issuer string `yaml:"issuer,omitempty"`
}

// NewPrefsFiles returns a PrefsFiles using dir, creating it if necessary.
func NewPrefsFiles(dir string) (*PrefsFiles, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &PrefsFiles{dir: dir}, nil
}

// Load reads all files. Missing files are treated as empty.
// Entries with invalid identities or values are skipped.
func (pf *PrefsFiles) Load() (Prefs, error) {
	prefs := NewPrefs()

	var modes map[string]string
	if err := pf.read(chatModesFile, &modes); err != nil {
		return Prefs{}, err
	}

	for k, v := range modes {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}

		mode, err := ParseChatMode(v)
		if err != nil {
			continue
		}

		prefs.ChatModes[id] = mode
	}

	var dms map[string]bool
	if err := pf.read(dmSettingsFile, &dms); err != nil {
		return Prefs{}, err
	}

	for k, v := range dms {
		if id, err := uuid.Parse(k); err == nil {
			prefs.DMEnabled[id] = v
		}
	}

	var ignores map[string][]string
	if err := pf.read(ignoreListFile, &ignores); err != nil {
		return Prefs{}, err
	}

	for k, v := range ignores {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}

		set := make(map[Identity]struct{})
		for _, s := range v {
			if other, err := uuid.Parse(s); err == nil {
				set[other] = struct{}{}
			}
		}

		if len(set) > 0 {
			prefs.Ignores[id] = set
		}
	}

	var mutes map[string]muteRecord
	if err := pf.read(mutesFile, &mutes); err != nil {
		return Prefs{}, err
	}

	for k, v := range mutes {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}

		m := Mute{ID: id, Reason: v.Reason, Issuer: v.Issuer}
		if v.Until != 0 {
			m.Until = time.Unix(v.Until, 0)
		}

		prefs.Mutes[id] = m
	}

	return prefs, nil
}

// Save writes all files. Each file is replaced atomically.
func (pf *PrefsFiles) Save(p Prefs) error {
	modes := make(map[string]string, len(p.ChatModes))
	for id, mode := range p.ChatModes {
		modes[id.String()] = mode.String()
	}

	dms := make(map[string]bool, len(p.DMEnabled))
	for id, enabled := range p.DMEnabled {
		dms[id.String()] = enabled
	}

	ignores := make(map[string][]string, len(p.Ignores))
	for id, set := range p.Ignores {
		var list []string
		for other := range set {
			list = append(list, other.String())
		}

		sort.Strings(list)
		ignores[id.String()] = list
	}

	mutes := make(map[string]muteRecord, len(p.Mutes))
	for id, m := range p.Mutes {
		rec := muteRecord{Reason: m.Reason, Issuer: m.Issuer}
		if !m.Permanent() {
			rec.Until = m.Until.Unix()
		}

		mutes[id.String()] = rec
	}

	for name, v := range map[string]any{
		chatModesFile:  modes,
		dmSettingsFile: dms,
		ignoreListFile: ignores,
		mutesFile:      mutes,
	} {
		if err := pf.write(name, v); err != nil {
			return err
		}
	}

	return nil
}

func (pf *PrefsFiles) Close() error { return nil }

func (pf *PrefsFiles) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(pf.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	return yaml.Unmarshal(data, v)
}

func (pf *PrefsFiles) write(name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(pf.dir, name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), filepath.Join(pf.dir, name))
}
