package chat

import (
	"fmt"
	"math"

	"github.com/HimbeerserverDE/mt"
)

// A Participant is a connected chat user.
// Implementations must be safe for concurrent use.
type Participant interface {
	ID() Identity
	Name() string

	// Zone is the world or area the participant is in.
	// Local chat never crosses zones.
	Zone() string
	Pos() mt.Pos

	// SendText delivers a chat line.
	SendText(t Text)
	// SendNotice delivers a system message such as a policy warning.
	SendNotice(t Text)
	// ActionBar shows a short transient message.
	ActionBar(t Text)
	PlaySound(name string)
	Kick(reason string)
}

// blockPos returns the integer block coordinates of a position.
func blockPos(pos mt.Pos) [3]int {
	return [3]int{
		int(math.Floor(float64(pos[0]))),
		int(math.Floor(float64(pos[1]))),
		int(math.Floor(float64(pos[2]))),
	}
}

func formatBlockPos(pos mt.Pos) string {
	b := blockPos(pos)
	return fmt.Sprintf("[%d, %d, %d]", b[0], b[1], b[2])
}

// distSq returns the squared distance between two positions.
func distSq(a, b mt.Pos) float64 {
	var d float64
	for i := range a {
		delta := float64(a[i]) - float64(b[i])
		d += delta * delta
	}

	return d
}
