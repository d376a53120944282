package chat

import (
	"fmt"
	"strings"
	"sync"
)

// CmdPrefix starts a chat command.
const CmdPrefix = "/"

// A ChatCmd is a command participants can run from chat.
type ChatCmd struct {
	Name  string
	Perm  string
	Help  string
	Usage string
	// Handler returns a styled reply for the caller, if any.
	Handler func(d *Dispatcher, p Participant, args ...string) string
}

var chatCmds map[string]ChatCmd
var chatCmdsMu sync.RWMutex
var chatCmdsOnce sync.Once

// ChatCmdExists reports whether a chat command exists.
func ChatCmdExists(name string) bool {
	initChatCmds()

	chatCmdsMu.RLock()
	defer chatCmdsMu.RUnlock()

	_, ok := chatCmds[strings.ToLower(name)]
	return ok
}

// RegisterChatCmd adds a new chat command. It returns true on success
// and false if a command with the same name already exists.
func RegisterChatCmd(cmd ChatCmd) bool {
	initChatCmds()

	chatCmdsMu.Lock()
	defer chatCmdsMu.Unlock()

	name := strings.ToLower(cmd.Name)
	if _, ok := chatCmds[name]; ok {
		return false
	}

	chatCmds[name] = cmd
	return true
}

func chatCmd(name string) (ChatCmd, bool) {
	initChatCmds()

	chatCmdsMu.RLock()
	defer chatCmdsMu.RUnlock()

	cmd, ok := chatCmds[strings.ToLower(name)]
	return cmd, ok
}

func initChatCmds() {
	chatCmdsOnce.Do(func() {
		chatCmdsMu.Lock()
		defer chatCmdsMu.Unlock()

		chatCmds = make(map[string]ChatCmd)
		for _, cmd := range builtinCmds() {
			chatCmds[cmd.Name] = cmd
		}
	})
}

// HandleChat is the entry point for everything a participant types.
// Commands run immediately, anything else is queued for dispatching.
func (d *Dispatcher) HandleChat(p Participant, line string) {
	if strings.HasPrefix(line, CmdPrefix) {
		d.RunCmd(p, strings.TrimPrefix(line, CmdPrefix))
		return
	}

	d.Submit(p, line)
}

// RunCmd runs a chat command line without its prefix
// and shows the reply to p.
func (d *Dispatcher) RunCmd(p Participant, line string) {
	substrs := strings.Fields(line)
	if len(substrs) == 0 {
		return
	}

	name, args := substrs[0], substrs[1:]
	d.logger.Println(p.Name(), "->", "command", name, strings.Join(args, " "))

	cmd, ok := chatCmd(name)
	if !ok {
		p.SendNotice(Colored("Command not found.", ColorRed))
		return
	}

	if cmd.Perm != "" && !d.caps.Has(p, cmd.Perm) {
		d.logger.Println(p.Name(), "<-", "deny command", name)
		p.SendNotice(Colored(fmt.Sprintf("Missing permission %s.", cmd.Perm), ColorRed))
		return
	}

	if reply := cmd.Handler(d, p, args...); reply != "" {
		for _, line := range strings.Split(reply, "\n") {
			p.SendNotice(ParseStyled(line))
		}
	}
}
