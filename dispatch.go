package chat

import (
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const spamKickReason = "Kicked for spamming!"

// Stage is a step of the dispatch pipeline.
type Stage uint8

const (
	StageReceived Stage = iota
	StageGated
	StageModeResolved
	StageAudienceComputed
	StageRewritten
	StageDelivered
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageGated:
		return "gated"
	case StageModeResolved:
		return "mode resolved"
	case StageAudienceComputed:
		return "audience computed"
	case StageRewritten:
		return "rewritten"
	case StageDelivered:
		return "delivered"
	}

	return "unknown"
}

// A Message is a chat message on its way through the pipeline.
// It can be dispatched only once.
type Message struct {
	Sender Participant
	Raw    string
	At     time.Time

	dispatched atomic.Bool
}

func NewMessage(sender Participant, raw string, at time.Time) *Message {
	return &Message{Sender: sender, Raw: raw, At: at}
}

// Options configures a Dispatcher.
// Only Config is required. Missing collaborators get defaults
// that keep the pipeline working.
type Options struct {
	Config Config

	Roster *Roster
	Prefs  *Preferences
	// Caps defaults to the Groups section of Config.
	Caps CapabilityChecker
	// Perms and Groups default to the GroupStyles section of Config.
	Perms  PermissionProvider
	Groups GroupProvider
	// Mutes defaults to Prefs.
	Mutes    MuteProvider
	Playtime PlaytimeProvider
	Teams    TeamProvider

	Transport Transport
	Console   Console
	// Scheduler runs notifications. If nil, the Dispatcher
	// runs its own Pump.
	Scheduler Scheduler
	// ConfigLoader is used by Reload. It defaults to
	// LoadConfig followed by Conf.
	ConfigLoader func() (Config, error)
}

// accessSections are the configuration sections
// that can change while the Dispatcher is running.
type accessSections struct {
	Groups      map[string][]string
	UserGroups  map[string]string
	GroupStyles map[string]GroupStyle
}

// A Dispatcher runs chat messages through the pipeline:
// mute check, anti-spam gate, mode routing, audience selection,
// mention and placeholder rewriting, delivery and relaying.
type Dispatcher struct {
	conf      Config
	roster    *Roster
	prefs     *Preferences
	caps      CapabilityChecker
	mutes     MuteProvider
	transport Transport
	console   Console
	sched     Scheduler
	pump      *Pump

	limiter      *RateLimiter
	router       *ChatModeRouter
	mentions     *MentionParser
	placeholders *PlaceholderEngine
	builtins     *BuiltinPlaceholders
	prefixes     *PrefixCache
	replies      ttlCache[Identity, Identity]

	access     atomic.Pointer[accessSections]
	loadConfig func() (Config, error)

	pool    *workerPool
	sweeper *sweeper
	now     func() time.Time
	logger  *log.Logger

	startOnce sync.Once
	closeOnce sync.Once
}

// NewDispatcher returns a Dispatcher. Call Start before Submit.
func NewDispatcher(opts Options) *Dispatcher {
	conf := opts.Config
	conf.normalize()

	d := &Dispatcher{
		conf:      conf,
		roster:    opts.Roster,
		prefs:     opts.Prefs,
		caps:      opts.Caps,
		mutes:     opts.Mutes,
		transport: opts.Transport,
		console:   opts.Console,
		sched:      opts.Scheduler,
		loadConfig: opts.ConfigLoader,
		now:        time.Now,
		logger:     newLogger("dispatch"),
	}

	d.storeAccess(conf)
	confPerms := NewConfPerms(d.accessConf)

	if d.loadConfig == nil {
		d.loadConfig = loadCurrentConfig
	}

	if d.roster == nil {
		d.roster = NewRoster()
	}

	if d.prefs == nil {
		d.prefs, _ = NewPreferences(&MemoryPrefs{})
	}

	if d.caps == nil {
		d.caps = confPerms
	}

	if d.mutes == nil {
		d.mutes = d.prefs
	}

	if d.console == nil {
		d.console = LogConsole{}
	}

	if d.sched == nil {
		d.pump = NewPump(256)
		d.sched = d.pump
	}

	perms := opts.Perms
	if perms == nil {
		perms = confPerms
	}

	groups := opts.Groups
	if groups == nil {
		groups = confPerms
	}

	d.limiter = NewRateLimiter(conf.AntiSpam)
	d.router = NewChatModeRouter(d.prefs, d.caps, conf.Chat.GlobalPrefix)
	d.mentions = NewMentionParser(conf.Mention, d.caps, d.sched)
	d.prefixes = NewPrefixCache(perms, time.Duration(conf.Chat.PrefixCacheSecs*float64(time.Second)))

	d.builtins = &BuiltinPlaceholders{
		Prefixes: d.prefixes,
		Groups:   groups,
		Playtime: opts.Playtime,
		Teams:    opts.Teams,
	}

	d.placeholders = NewPlaceholderEngine()
	d.builtins.Install(d.placeholders)

	return d
}

// Roster returns the online participants.
func (d *Dispatcher) Roster() *Roster { return d.roster }

// Prefs returns the preference store.
func (d *Dispatcher) Prefs() *Preferences { return d.prefs }

// Placeholders returns the placeholder engine
// so hosts can register their own placeholders.
func (d *Dispatcher) Placeholders() *PlaceholderEngine { return d.placeholders }

// Start launches the workers, the cache sweepers and the transport.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		if d.pump != nil {
			go d.pump.Run()
		}

		d.pool = newWorkerPool(d.conf.Workers, d.handle)

		d.sweeper = newSweeper(
			sweepTask{every: antiSpamSweepInterval, sweep: func(now time.Time) { d.limiter.Sweep(now, d.roster.Online) }},
			sweepTask{every: prefixSweepInterval, sweep: func(time.Time) { d.prefixes.Sweep(d.roster.Online) }},
			sweepTask{every: placeholderSweepInterval, sweep: d.builtins.Sweep},
			sweepTask{every: mentionSweepInterval, sweep: d.mentions.Sweep},
			sweepTask{every: whisperSweepInterval, sweep: func(now time.Time) { d.replies.sweep(now) }},
		)
		d.sweeper.start()

		if d.transport != nil && d.conf.Relay.Enabled {
			d.transport.Listen(d.HandleRemote)
		}

		d.logger.Println("started with", d.conf.Workers, "workers")
	})
}

// Submit queues a chat message from p for dispatching.
func (d *Dispatcher) Submit(p Participant, raw string) {
	msg := NewMessage(p, raw, d.now())
	if d.pool == nil || !d.pool.submit(msg) {
		d.logger.Println("drop message from", p.Name(), "after shutdown")
	}
}

func (d *Dispatcher) handle(msg *Message) {
	if err := d.Dispatch(msg); err != nil && !expected(err) {
		d.logger.Println("dispatch message from", msg.Sender.Name(), "failed:", err)
	}
}

// expected reports whether err is a normal outcome of dispatching.
func expected(err error) bool {
	var rej *PolicyRejection
	return errors.As(err, &rej) || errors.Is(err, ErrEmptyMessage)
}

// Dispatch runs msg through the pipeline on the calling goroutine.
// It returns nil if the message was delivered, a *PolicyRejection
// if it was refused and ErrEmptyMessage if nothing was left to send.
func (d *Dispatcher) Dispatch(msg *Message) error {
	if msg.dispatched.Swap(true) {
		return ErrAlreadyDispatched
	}

	_, err := d.process(msg)
	return err
}

// process returns the last stage the message completed.
func (d *Dispatcher) process(msg *Message) (Stage, error) {
	p := msg.Sender

	raw := onChatMsg(p, msg.Raw)
	if strings.TrimSpace(raw) == "" {
		return StageReceived, ErrEmptyMessage
	}

	if d.checkMuted(p, msg.At) {
		return StageReceived, &PolicyRejection{Reason: RejectMuted}
	}

	if err := d.admit(p, raw, msg.At); err != nil {
		return StageReceived, err
	}

	text, global, err := d.router.Resolve(p, raw)
	if err != nil {
		var rej *PolicyRejection
		if errors.As(err, &rej) {
			p.SendNotice(rej.Notice())
		}

		return StageGated, err
	}

	audience := d.audience(p, global)

	text, _ = d.mentions.Rewrite(p, text, audience)
	body := d.placeholders.Expand(p, text)
	line := d.compose(p, body, global)

	for _, r := range audience {
		r.SendText(line)
	}
	d.console.Mirror(line)

	if global {
		d.relay(p, body)
	} else if len(audience) < 2 && d.conf.Chat.NoHearHint {
		p.SendNotice(Colored("No one heard you. Use "+d.conf.Chat.GlobalPrefix+" or /global to switch to global chat.", ColorGray))
	}

	return StageDelivered, nil
}

// checkMuted notifies p and reports true if p is muted.
// Provider failures count as not muted.
func (d *Dispatcher) checkMuted(p Participant, now time.Time) bool {
	muted, err := d.mutes.IsMuted(p.ID())
	if err != nil {
		d.logger.Println("mute check for", p.Name(), "failed:", err)
		return false
	}

	if !muted {
		return false
	}

	m, err := d.mutes.ActiveMute(p.ID())
	if err != nil {
		m = nil
	}

	for _, line := range muteNotice(m, now) {
		p.SendNotice(line)
	}

	return true
}

// admit applies the anti-spam policy unless p may bypass it.
func (d *Dispatcher) admit(p Participant, text string, now time.Time) error {
	if d.caps.Has(p, PermBypassAntiSpam) {
		return nil
	}

	err := d.limiter.Admit(p.ID(), text, now)

	var rej *PolicyRejection
	if !errors.As(err, &rej) {
		return err
	}

	if rej.Kick {
		d.kick(p, spamKickReason)
	} else {
		p.SendNotice(rej.Notice())
	}

	return err
}

// kick disconnects p on the scheduler and purges its state.
func (d *Dispatcher) kick(p Participant, reason string) {
	d.logger.Println("kick", p.Name()+":", reason)
	d.OnDisconnect(p.ID())
	d.sched.Schedule(func() { p.Kick(reason) })
}

// audience returns the recipients of a message from p, p first.
// Local messages reach participants in the same zone within
// the configured radius. Participants ignoring p are left out.
func (d *Dispatcher) audience(p Participant, global bool) []Participant {
	radiusSq := d.conf.Chat.LocalRadius * d.conf.Chat.LocalRadius
	zone, pos := p.Zone(), p.Pos()

	audience := []Participant{p}
	for _, r := range d.roster.All() {
		if r.ID() == p.ID() {
			continue
		}

		if !global && (r.Zone() != zone || distSq(r.Pos(), pos) > radiusSq) {
			continue
		}

		if d.prefs.IsIgnoring(r.ID(), p.ID()) {
			continue
		}

		audience = append(audience, r)
	}

	return audience
}

// compose builds the chat line shown to recipients.
func (d *Dispatcher) compose(p Participant, body Text, global bool) Text {
	var line Text
	if global {
		line = Colored("G ", ColorRed)
	} else {
		line = Colored("L ", ColorYellow)
	}

	line = line.Append(Colored("| ", ColorDarkGray))

	if d.conf.Chat.UsePrefixes {
		if prefix := d.prefixes.Get(p); prefix != "" {
			line = line.Append(ParseStyled(prefix+"&r "))
		}
	}

	return line.Append(d.nameTag(p), Colored(" › ", ColorDarkGray), body)
}

func (d *Dispatcher) nameTag(p Participant) Text {
	hover := Colored("Player Information\n", ColorGold)
	if hours, ok := d.hoursPlayed(p); ok {
		hover = hover.Append(Colored("Hours Played: ", ColorGray), Colored(hours+"\n", ColorWhite))
	}

	hover = hover.Append(Text{{Text: "Click to message", Color: ColorGray, Italic: true}})

	return Text{{
		Text:  p.Name(),
		Color: ColorWhite,
		Hover: hover,
		Click: &Click{Action: ClickSuggest, Value: "/m " + p.Name() + " "},
	}}
}

// hoursPlayed reports false for players without any playtime.
func (d *Dispatcher) hoursPlayed(p Participant) (string, bool) {
	if d.builtins.Playtime == nil {
		return "", false
	}

	hours, err := d.builtins.cached(p.ID(), "hours", placeholderTTL, func() (string, error) {
		played, err := d.builtins.Playtime.Playtime(p.ID())
		if err != nil {
			return "", err
		}

		if played <= 0 {
			return "", nil
		}

		return formatHours(played), nil
	})
	if err != nil {
		d.logger.Println("playtime of", p.Name(), "unavailable:", err)
		return "", false
	}

	return hours, hours != ""
}

// relay sends a global message to other servers if p may do so.
func (d *Dispatcher) relay(p Participant, body Text) {
	if d.transport == nil || !d.conf.Relay.Enabled || !d.caps.Has(p, PermProxy) {
		return
	}

	err := d.transport.Broadcast(RemoteMessage{
		Server:  d.conf.ServerName,
		Player:  p.Name(),
		Message: body.Plain(),
		Format:  d.conf.Relay.Format,
	})
	if err != nil {
		d.logger.Println("relay message from", p.Name(), "failed:", err)
	}
}

// broadcast shows line to every online participant and the console.
func (d *Dispatcher) broadcast(line Text) {
	for _, r := range d.roster.All() {
		r.SendText(line)
	}

	d.console.Mirror(line)
}

// HandleRemote delivers a message relayed from another server
// to every online participant. Messages from this server are dropped.
func (d *Dispatcher) HandleRemote(m RemoteMessage) {
	if m.Server == d.conf.ServerName {
		return
	}

	d.broadcast(m.Render())
}

// Join adds p to the roster and runs the join handlers.
// It reports false if a handler kicked p.
func (d *Dispatcher) Join(p Participant) bool {
	d.roster.Add(p)

	if !handleJoin(p) {
		d.OnDisconnect(p.ID())
		return false
	}

	if muted, err := d.mutes.IsMuted(p.ID()); err == nil && muted {
		m, _ := d.mutes.ActiveMute(p.ID())
		d.sched.Schedule(func() {
			for _, line := range muteNotice(m, d.now()) {
				p.SendNotice(line)
			}
		})
	}

	return true
}

// Leave runs the leave handlers and forgets p.
func (d *Dispatcher) Leave(p Participant) {
	handleLeave(p)
	d.OnDisconnect(p.ID())
}

// OnDisconnect purges all state kept for a participant.
func (d *Dispatcher) OnDisconnect(id Identity) {
	d.roster.Remove(id)
	d.limiter.Reset(id)
	d.prefixes.Invalidate(id)
	d.builtins.Forget(id)
	d.mentions.Forget(id)
	d.replies.delete(id)
}

func (d *Dispatcher) storeAccess(conf Config) {
	d.access.Store(&accessSections{
		Groups:      conf.Groups,
		UserGroups:  conf.UserGroups,
		GroupStyles: conf.GroupStyles,
	})
}

// accessConf returns the live Groups, UserGroups
// and GroupStyles sections.
func (d *Dispatcher) accessConf() Config {
	a := d.access.Load()
	return Config{
		Groups:      a.Groups,
		UserGroups:  a.UserGroups,
		GroupStyles: a.GroupStyles,
	}
}

func loadCurrentConfig() (Config, error) {
	if err := LoadConfig(); err != nil {
		return Config{}, err
	}

	return Conf(), nil
}

// Reload reloads the configuration and the preferences.
// Only the Groups, UserGroups and GroupStyles sections
// take effect without a restart.
func (d *Dispatcher) Reload() error {
	conf, err := d.loadConfig()
	if err != nil {
		return err
	}

	d.UpdateAccess(conf)
	d.OnPreferenceReload()

	return nil
}

// UpdateAccess applies the Groups, UserGroups and GroupStyles
// sections of conf. Everyone online whose group or group style
// changed gets their cached rank data dropped.
func (d *Dispatcher) UpdateAccess(conf Config) {
	oldConf := d.accessConf()
	d.storeAccess(conf)
	newConf := d.accessConf()

	oldPerms := NewConfPerms(func() Config { return oldConf })
	newPerms := NewConfPerms(func() Config { return newConf })

	for _, p := range d.roster.All() {
		oldGrp, _ := oldPerms.Group(p)
		newGrp, _ := newPerms.Group(p)

		if oldGrp != newGrp || oldConf.GroupStyles[oldGrp] != newConf.GroupStyles[newGrp] {
			d.logger.Println("rank of", p.Name(), "changed")
			d.OnPermissionChange(p.ID())
		}
	}
}

// OnPermissionChange drops cached rank data of a participant.
func (d *Dispatcher) OnPermissionChange(id Identity) {
	d.prefixes.Invalidate(id)
	d.builtins.ForgetGroup(id)
}

// OnPreferenceReload reloads the preference store
// and clears every cache.
func (d *Dispatcher) OnPreferenceReload() {
	if err := d.prefs.Reload(); err != nil {
		d.logger.Println("reload preferences:", err)
	}

	d.limiter.Clear()
	d.prefixes.Clear()
	d.builtins.Clear()
	d.mentions.Clear()
	d.replies.clear()
}

// Close stops the Dispatcher, waits for queued messages,
// flushes the preferences and closes the transport.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.pool != nil {
			d.pool.close()
		}

		if d.sweeper != nil {
			d.sweeper.stop()
		}

		d.mentions.Wait()

		// The pump only runs after Start.
		if d.pump != nil && d.pool != nil {
			d.pump.Close()
		}

		err = d.prefs.Close()

		if d.transport != nil {
			if terr := d.transport.Close(); terr != nil && err == nil {
				err = terr
			}
		}

		d.logger.Println("stopped")
	})

	return err
}
