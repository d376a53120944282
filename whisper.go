package chat

import (
	"strings"
	"time"
)

const (
	whisperOutFormat = "&7[&6me &7-> &6{PLAYER}&7] &f"
	whisperInFormat  = "&7[&6{PLAYER} &7-> &6me&7] &f"

	replyTTL = 30 * time.Minute
)

// Whisper sends a direct message from sender to the named participant.
// Both sides may reply to each other for a while afterwards.
func (d *Dispatcher) Whisper(sender Participant, recipient, text string) error {
	refuse := func(notice string, err error) error {
		sender.SendNotice(Colored(notice, ColorRed))
		return err
	}

	if !d.caps.Has(sender, PermMessage) {
		return refuse("You don't have permission to send direct messages!", ErrDMRefused)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return refuse("You cannot send empty messages!", ErrEmptyMessage)
	}

	if !d.prefs.DMEnabled(sender.ID()) {
		return refuse("You have direct messages disabled! Use /dm on to enable them.", ErrDMRefused)
	}

	if muted, err := d.mutes.IsMuted(sender.ID()); err == nil && muted {
		return refuse("You cannot send messages while muted!", &PolicyRejection{Reason: RejectMuted})
	}

	to := d.roster.Find(recipient)
	if to == nil {
		return refuse("Player not found!", ErrNoRecipient)
	}

	if to.ID() == sender.ID() {
		return refuse("You cannot message yourself!", ErrDMRefused)
	}

	if !d.prefs.DMEnabled(to.ID()) {
		return refuse("Sorry, this player is not allowing other people to send them DMs.", ErrDMRefused)
	}

	if d.prefs.IsIgnoring(to.ID(), sender.ID()) {
		return refuse("You cannot send messages to this player.", ErrDMRefused)
	}

	now := d.now()
	if err := d.admit(sender, text, now); err != nil {
		return err
	}

	body := d.placeholders.Expand(sender, text)
	sender.SendText(ParseStyled(strings.ReplaceAll(whisperOutFormat, "{PLAYER}", to.Name())).Append(body))
	to.SendText(ParseStyled(strings.ReplaceAll(whisperInFormat, "{PLAYER}", sender.Name())).Append(body))

	d.replies.put(sender.ID(), to.ID(), now.Add(replyTTL))
	d.replies.put(to.ID(), sender.ID(), now.Add(replyTTL))

	d.logger.Println(sender.Name(), "->", to.Name()+":", body.Plain())
	return nil
}

// Reply sends a direct message to whoever sender
// last exchanged one with.
func (d *Dispatcher) Reply(sender Participant, text string) error {
	id, ok := d.replies.get(sender.ID(), d.now())
	if !ok {
		sender.SendNotice(Colored("You have no one to reply to!", ColorRed))
		return ErrNoRecipient
	}

	to, ok := d.roster.Get(id)
	if !ok {
		sender.SendNotice(Colored("That player is no longer online!", ColorRed))
		return ErrNoRecipient
	}

	return d.Whisper(sender, to.Name(), text)
}
