package chat

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxRoll = 1000

var startTime = time.Now()

// Uptime returns how long the chat has been running,
// rounded to whole seconds.
func Uptime() time.Duration {
	return time.Since(startTime).Round(time.Second)
}

func builtinCmds() []ChatCmd {
	global := ChatCmd{
		Name:    "global",
		Perm:    PermCmdGlobal,
		Help:    "Send messages to global chat by default",
		Handler: setMode(ModeGlobal),
	}

	local := ChatCmd{
		Name:    "local",
		Perm:    PermCmdLocal,
		Help:    "Send messages to local chat by default",
		Handler: setMode(ModeLocal),
	}

	msg := ChatCmd{
		Name:    "msg",
		Perm:    PermMessage,
		Help:    "Send a direct message",
		Usage:   "<player> <message>",
		Handler: cmdMsg,
	}

	reply := ChatCmd{
		Name:    "r",
		Perm:    PermMessage,
		Help:    "Reply to the last direct message",
		Usage:   "<message>",
		Handler: cmdReply,
	}

	cmds := []ChatCmd{
		global, local, msg, reply,
		{
			Name:    "dm",
			Perm:    PermMessage,
			Help:    "Allow or refuse direct messages",
			Usage:   "<on|off>",
			Handler: cmdDM,
		},
		{
			Name:    "ignore",
			Help:    "Toggle ignoring a player or list ignored players",
			Usage:   "[player]",
			Handler: cmdIgnore,
		},
		{
			Name:    "mute",
			Perm:    PermMute,
			Help:    "Mute a player",
			Usage:   "<player> [duration|perm] [reason]",
			Handler: cmdMute,
		},
		{
			Name:    "unmute",
			Perm:    PermMute,
			Help:    "Unmute a player",
			Usage:   "<player>",
			Handler: cmdUnmute,
		},
		{
			Name:    "muteinfo",
			Help:    "Show whether you are muted",
			Handler: cmdMuteInfo,
		},
		{
			Name:    "reload",
			Perm:    PermReload,
			Help:    "Reload groups, preferences and caches",
			Handler: cmdReload,
		},
		{
			Name:    "roll",
			Perm:    PermRoll,
			Help:    "Roll a dice",
			Usage:   "[sides]",
			Handler: cmdRoll,
		},
		{
			Name:    "coin",
			Perm:    PermCoin,
			Help:    "Toss a coin",
			Handler: cmdCoin,
		},
		{
			Name:    "uptime",
			Help:    "Show how long the chat has been running",
			Handler: cmdUptime,
		},
		{
			Name:    "help",
			Help:    "List the commands you can use",
			Handler: cmdHelp,
		},
	}

	for _, alias := range []string{"m", "tell", "w"} {
		cmd := msg
		cmd.Name = alias
		cmds = append(cmds, cmd)
	}

	reply.Name = "reply"
	global.Name = "g"
	local.Name = "l"

	return append(cmds, reply, global, local)
}

func usage(name, args string) string {
	return "&cUsage: " + CmdPrefix + name + " " + args
}

func setMode(mode ChatMode) func(*Dispatcher, Participant, ...string) string {
	return func(d *Dispatcher, p Participant, args ...string) string {
		if err := d.prefs.SetChatMode(p.ID(), mode); err != nil {
			d.logger.Println("set chat mode of", p.Name()+":", err)
			return "&cCould not change your chat mode."
		}

		if mode == ModeGlobal {
			return "&aYou have switched to &eGlobal &achat mode!\n" +
				"&7Your messages will now be sent to global chat by default."
		}

		return "&aYou have switched to &eLocal &achat mode!\n" +
			"&7Your messages will now be sent to local chat by default.\n" +
			"&7Use &e" + d.conf.Chat.GlobalPrefix + " &7prefix to send a message to global chat."
	}
}

func cmdMsg(d *Dispatcher, p Participant, args ...string) string {
	if len(args) < 2 {
		return usage("msg", "<player> <message>")
	}

	d.Whisper(p, args[0], strings.Join(args[1:], " "))
	return ""
}

func cmdReply(d *Dispatcher, p Participant, args ...string) string {
	if len(args) == 0 {
		return usage("r", "<message>")
	}

	d.Reply(p, strings.Join(args, " "))
	return ""
}

func cmdDM(d *Dispatcher, p Participant, args ...string) string {
	if len(args) != 1 {
		return usage("dm", "<on|off>")
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on", "enable", "true":
		enabled = true
	case "off", "disable", "false":
	default:
		return usage("dm", "<on|off>")
	}

	if err := d.prefs.SetDMEnabled(p.ID(), enabled); err != nil {
		d.logger.Println("set dm setting of", p.Name()+":", err)
		return "&cCould not change your direct message setting."
	}

	if enabled {
		return "&aDirect messages have been &2enabled&a!\n" +
			"&7Other players can now send you private messages."
	}

	return "&cDirect messages have been &4disabled&c!\n" +
		"&7Other players cannot send you private messages.\n" +
		"&7Note: You also cannot send messages to others while DMs are off."
}

func cmdIgnore(d *Dispatcher, p Participant, args ...string) string {
	if len(args) == 0 {
		return ignoreList(d, p)
	}

	target := d.roster.Find(args[0])
	if target == nil {
		return "&cPlayer '" + args[0] + "' not found!"
	}

	if target.ID() == p.ID() {
		return "&cYou cannot ignore yourself!"
	}

	if d.prefs.IsIgnoring(p.ID(), target.ID()) {
		if err := d.prefs.Unignore(p.ID(), target.ID()); err != nil {
			d.logger.Println("unignore:", err)
			return "&cCould not update your ignore list."
		}

		return "&aYou are no longer ignoring &e" + target.Name() + "&a."
	}

	if d.caps.Has(target, PermIgnoreExempt) {
		return "&cYou cannot ignore this player!"
	}

	if err := d.prefs.Ignore(p.ID(), target.ID()); err != nil {
		d.logger.Println("ignore:", err)
		return "&cCould not update your ignore list."
	}

	return "&cYou are now ignoring &e" + target.Name() + "&c.\n" +
		"&7You will not see messages from this player."
}

func ignoreList(d *Dispatcher, p Participant) string {
	ignored := d.prefs.Ignored(p.ID())
	if len(ignored) == 0 {
		return "&aYou are not ignoring anyone."
	}

	names := make([]string, 0, len(ignored))
	for _, id := range ignored {
		if other, ok := d.roster.Get(id); ok {
			names = append(names, other.Name())
		} else {
			names = append(names, id.String())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("&6=== Ignored Players ===\n")
	for _, name := range names {
		b.WriteString("&7- &e" + name + "\n")
	}
	b.WriteString("&7Use &e" + CmdPrefix + "ignore <player> &7to unignore.")

	return b.String()
}

func cmdMute(d *Dispatcher, p Participant, args ...string) string {
	if len(args) == 0 {
		return usage("mute", "<player> [duration|perm] [reason]")
	}

	m := Mute{
		ID:     IdentityFor(args[0]),
		Issuer: p.Name(),
	}

	rest := args[1:]
	if len(rest) > 0 {
		switch rest[0] {
		case "perm", "permanent":
			rest = rest[1:]
		default:
			if dur, err := time.ParseDuration(rest[0]); err == nil && dur > 0 {
				m.Until = d.now().Add(dur)
				rest = rest[1:]
			}
		}
	}
	m.Reason = strings.Join(rest, " ")

	if err := d.prefs.Mute(m); err != nil {
		d.logger.Println("mute", args[0]+":", err)
		return "&cCould not mute " + args[0] + "."
	}

	d.logger.Println(p.Name(), "muted", args[0], "until", m.Until, "reason", m.Reason)

	if target := d.roster.Find(args[0]); target != nil {
		target.SendNotice(Text{{Text: "You have been muted!", Color: ColorRed, Bold: true}})
		for _, line := range muteNotice(&m, d.now()) {
			target.SendNotice(line)
		}
	}

	return "&aMuted &e" + args[0] + "&a (" + m.Remaining(d.now()) + ")."
}

func cmdUnmute(d *Dispatcher, p Participant, args ...string) string {
	if len(args) != 1 {
		return usage("unmute", "<player>")
	}

	if err := d.prefs.Unmute(IdentityFor(args[0])); err != nil {
		d.logger.Println("unmute", args[0]+":", err)
		return "&cCould not unmute " + args[0] + "."
	}

	if target := d.roster.Find(args[0]); target != nil {
		target.SendNotice(Colored("You have been unmuted. You can chat again.", ColorGreen))
	}

	return "&aUnmuted &e" + args[0] + "&a."
}

func cmdMuteInfo(d *Dispatcher, p Participant, args ...string) string {
	m, err := d.mutes.ActiveMute(p.ID())
	if err != nil {
		return "&cMute system is not available!"
	}

	if m == nil {
		return "&aYou are not muted!"
	}

	info := "&c&lYou are currently muted!\n&7Time remaining: &e" + m.Remaining(d.now())
	if m.Reason != "" {
		info += "\n&7Reason: &f" + m.Reason
	}

	if m.Issuer != "" {
		info += "\n&7Muted by: &f" + m.Issuer
	}

	return info
}

func cmdReload(d *Dispatcher, p Participant, args ...string) string {
	if err := d.Reload(); err != nil {
		d.logger.Println("reload:", err)
		return "&cCould not reload the configuration: " + err.Error()
	}

	return "&aConfiguration and preferences reloaded successfully!"
}

func cmdRoll(d *Dispatcher, p Participant, args ...string) string {
	sides := 6
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxRoll {
			return fmt.Sprintf("&cPlease enter a number between 1 and %d!", maxRoll)
		}

		sides = n
	}

	d.broadcast(ParseStyled(fmt.Sprintf("&6%s &erolled a dice and got &6%d", p.Name(), rand.IntN(sides)+1)))
	return ""
}

func cmdCoin(d *Dispatcher, p Participant, args ...string) string {
	result := "Heads"
	if rand.IntN(2) == 1 {
		result = "Tails"
	}

	d.broadcast(ParseStyled("&eCoin toss result: &6" + result))
	return ""
}

func cmdUptime(d *Dispatcher, p Participant, args ...string) string {
	return "&7Uptime: &e" + Uptime().String()
}

func cmdHelp(d *Dispatcher, p Participant, args ...string) string {
	chatCmdsMu.RLock()
	defer chatCmdsMu.RUnlock()

	names := make([]string, 0, len(chatCmds))
	for name, cmd := range chatCmds {
		if cmd.Perm == "" || d.caps.Has(p, cmd.Perm) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("&6=== Commands ===")
	for _, name := range names {
		cmd := chatCmds[name]
		b.WriteString("\n&e" + CmdPrefix + name)
		if cmd.Usage != "" {
			b.WriteString(" " + cmd.Usage)
		}

		if cmd.Help != "" {
			b.WriteString(" &7- " + cmd.Help)
		}
	}

	return b.String()
}
