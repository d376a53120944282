package chat

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerName   = "default"
	defaultTelnetAddr   = "[::1]:40010"
	defaultConsoleZone  = "console"
	defaultWorkers      = 4
	defaultPrefsBackend = "files"
	defaultGlobalPrefix = "!"
	defaultLocalRadius  = 50
	defaultTrigger      = "@"
	defaultHighlight    = "&e"
	defaultMentionSound = "chat_mention"
	defaultRelayChannel = "mtchat:global"
	defaultRelayFormat  = "&7[&b{SERVER}&7] &f{PLAYER}&7: &f{MESSAGE}"
	defaultRelayAddr    = "[::1]:40020"
)

var config Config
var configMu sync.RWMutex

// A GroupStyle is the chat decoration of a group.
type GroupStyle struct {
	Prefix string
	Suffix string
}

// AntiSpamConfig holds the RateLimiter policy.
// Durations are in seconds. Setting a limit to zero disables its check.
type AntiSpamConfig struct {
	Enabled              bool
	MessageCooldown      float64
	DuplicateMessageTime float64
	MaxMessagesPerMinute int
	BlockDuplicates      bool
	BlockExcessiveCaps   bool
	MaxCapsPercent       int
	MinMessageLength     int
	BlockRepeatingChars  bool
	MaxRepeatingChars    int
	BlockSpecialChars    bool
	KickAfterWarnings    int
}

func (c AntiSpamConfig) cooldown() time.Duration {
	return time.Duration(c.MessageCooldown * float64(time.Second))
}

func (c AntiSpamConfig) duplicateWindow() time.Duration {
	return time.Duration(c.DuplicateMessageTime * float64(time.Second))
}

type ChatConfig struct {
	GlobalPrefix    string
	LocalRadius     float64
	UsePrefixes     bool
	PrefixCacheSecs float64
	// NoHearHint is shown when nobody received a local message.
	NoHearHint bool
}

type MentionConfig struct {
	Enabled        bool
	Trigger        string
	HighlightColor string
	Sound          string
	CooldownSecs   float64
}

type RelayConfig struct {
	Enabled  bool
	URL      string
	Channel  string
	Format   string
	BindAddr string
}

// A Config holds all configuration values.
type Config struct {
	ServerName   string
	TelnetAddr   string
	ConsoleZone  string
	Workers      int
	NoPlugins    bool
	PrefsBackend string
	PrefsDSN     string
	Groups       map[string][]string
	UserGroups   map[string]string
	GroupStyles  map[string]GroupStyle
	AntiSpam     AntiSpamConfig
	Chat         ChatConfig
	Mention      MentionConfig
	Relay        RelayConfig
}

// DefaultConfig returns the configuration used for omitted values.
func DefaultConfig() Config {
	return Config{
		ServerName:   defaultServerName,
		TelnetAddr:   defaultTelnetAddr,
		ConsoleZone:  defaultConsoleZone,
		Workers:      defaultWorkers,
		PrefsBackend: defaultPrefsBackend,
		Groups: map[string][]string{
			"default": {
				PermLocal, PermGlobal, PermMention, PermMessage,
				PermCmdLocal, PermCmdGlobal, PermRoll, PermCoin,
			},
		},
		AntiSpam: AntiSpamConfig{
			Enabled:              true,
			MessageCooldown:      3,
			DuplicateMessageTime: 30,
			MaxMessagesPerMinute: 10,
			BlockDuplicates:      true,
			BlockExcessiveCaps:   true,
			MaxCapsPercent:       50,
			MinMessageLength:     3,
			BlockRepeatingChars:  true,
			MaxRepeatingChars:    5,
			BlockSpecialChars:    true,
			KickAfterWarnings:    5,
		},
		Chat: ChatConfig{
			GlobalPrefix:    defaultGlobalPrefix,
			LocalRadius:     defaultLocalRadius,
			UsePrefixes:     true,
			PrefixCacheSecs: 30,
			NoHearHint:      true,
		},
		Mention: MentionConfig{
			Enabled:        true,
			Trigger:        defaultTrigger,
			HighlightColor: defaultHighlight,
			Sound:          defaultMentionSound,
			CooldownSecs:   5,
		},
		Relay: RelayConfig{
			Channel:  defaultRelayChannel,
			Format:   defaultRelayFormat,
			BindAddr: defaultRelayAddr,
		},
	}
}

// Conf returns a copy of the current configuration.
func Conf() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	return config
}

// Path prepends the directory the executable is in to the given path.
// It does not verify that the executable path is valid.
func Path(path ...string) string {
	executable, err := os.Executable()
	if err != nil {
		return filepath.Join(path...)
	}

	return filepath.Join(append([]string{filepath.Dir(executable)}, path...)...)
}

// LoadConfig attempts to parse the configuration file.
// It leaves the config unchanged if there is an error
// and returns the error.
// Values from a .env file next to the executable and from
// the environment override the file.
func LoadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	oldConf := config

	if err := godotenv.Load(Path(".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	config = DefaultConfig()

	f, err := os.OpenFile(Path("config.json"), os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		config = oldConf
		return err
	}
	defer f.Close()

	if fi, _ := f.Stat(); fi.Size() == 0 {
		f.WriteString("{\n\t\n}\n")
		f.Seek(0, os.SEEK_SET)
	}

	decoder := json.NewDecoder(f)
	if err := decoder.Decode(&config); err != nil {
		config = oldConf
		return err
	}

	config.applyEnv(os.LookupEnv)
	config.normalize()

	log.Print("{←|⇶} load config")
	return nil
}

// applyEnv overrides selected values from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, dst := range map[string]*string{
		"MTCHAT_SERVER_NAME":   &c.ServerName,
		"MTCHAT_PREFS_BACKEND": &c.PrefsBackend,
		"MTCHAT_PREFS_DSN":     &c.PrefsDSN,
		"MTCHAT_RELAY_URL":     &c.Relay.URL,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
}

// normalize replaces invalid values with their defaults,
// logging every replacement.
func (c *Config) normalize() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	if c.Chat.GlobalPrefix == "" {
		c.Chat.GlobalPrefix = defaultGlobalPrefix
	}

	if c.Chat.LocalRadius <= 0 {
		log.Print("{←|⇶} invalid local chat radius, using ", defaultLocalRadius)
		c.Chat.LocalRadius = defaultLocalRadius
	}

	if c.Mention.Trigger == "" {
		c.Mention.Trigger = defaultTrigger
	}

	if !ValidStyleCode(c.Mention.HighlightColor) {
		log.Printf("{←|⇶} invalid mention highlight %q, using %s", c.Mention.HighlightColor, defaultHighlight)
		c.Mention.HighlightColor = defaultHighlight
	}

	if !validSoundName(c.Mention.Sound) {
		log.Printf("{←|⇶} invalid mention sound %q, using %s", c.Mention.Sound, defaultMentionSound)
		c.Mention.Sound = defaultMentionSound
	}

	if !validRelayFormat(c.Relay.Format) {
		log.Printf("{←|⇶} relay format %q lacks {MESSAGE}, using default", c.Relay.Format)
		c.Relay.Format = defaultRelayFormat
	}

	if c.Relay.Channel == "" {
		c.Relay.Channel = defaultRelayChannel
	}
}

func validSoundName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-') {
			return false
		}
	}

	return true
}
