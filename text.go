package chat

import "strings"

// Colors of the legacy style code palette.
const (
	ColorBlack       = "#000000"
	ColorDarkBlue    = "#0000AA"
	ColorDarkGreen   = "#00AA00"
	ColorDarkAqua    = "#00AAAA"
	ColorDarkRed     = "#AA0000"
	ColorDarkPurple  = "#AA00AA"
	ColorGold        = "#FFAA00"
	ColorGray        = "#AAAAAA"
	ColorDarkGray    = "#555555"
	ColorBlue        = "#5555FF"
	ColorGreen       = "#55FF55"
	ColorAqua        = "#55FFFF"
	ColorRed         = "#FF5555"
	ColorLightPurple = "#FF55FF"
	ColorYellow      = "#FFFF55"
	ColorWhite       = "#FFFFFF"
)

var styleColors = map[byte]string{
	'0': ColorBlack,
	'1': ColorDarkBlue,
	'2': ColorDarkGreen,
	'3': ColorDarkAqua,
	'4': ColorDarkRed,
	'5': ColorDarkPurple,
	'6': ColorGold,
	'7': ColorGray,
	'8': ColorDarkGray,
	'9': ColorBlue,
	'a': ColorGreen,
	'b': ColorAqua,
	'c': ColorRed,
	'd': ColorLightPurple,
	'e': ColorYellow,
	'f': ColorWhite,
}

// ClickAction is what a client does when a Fragment is clicked.
type ClickAction uint8

const (
	// ClickSuggest puts the value into the chat input.
	ClickSuggest ClickAction = iota
	// ClickCopy copies the value to the clipboard.
	ClickCopy
)

type Click struct {
	Action ClickAction
	Value  string
}

// A Fragment is a run of uniformly styled text.
// Hover and Click are only shown by renderers that support them.
type Fragment struct {
	Text   string
	Color  string
	Bold   bool
	Italic bool
	Hover  Text
	Click  *Click
}

func (f Fragment) sameStyle(g Fragment) bool {
	return f.Color == g.Color && f.Bold == g.Bold && f.Italic == g.Italic &&
		f.Hover == nil && g.Hover == nil && f.Click == nil && g.Click == nil
}

// Text is styled chat text.
type Text []Fragment

// Literal returns unstyled text.
func Literal(s string) Text {
	if s == "" {
		return nil
	}

	return Text{{Text: s}}
}

// Colored returns text in a single color.
func Colored(s, color string) Text {
	if s == "" {
		return nil
	}

	return Text{{Text: s, Color: color}}
}

// Plain returns the text without any styling.
func (t Text) Plain() string {
	var b strings.Builder
	for _, f := range t {
		b.WriteString(f.Text)
	}

	return b.String()
}

// Append returns the concatenation of t and the arguments.
// Adjacent fragments of identical style are merged.
func (t Text) Append(texts ...Text) Text {
	out := make(Text, 0, len(t))
	out = out.push(t...)
	for _, u := range texts {
		out = out.push(u...)
	}

	return out
}

func (t Text) push(frags ...Fragment) Text {
	for _, f := range frags {
		if f.Text == "" {
			continue
		}

		if n := len(t); n > 0 && t[n-1].sameStyle(f) {
			t[n-1].Text += f.Text
			continue
		}

		t = append(t, f)
	}

	return t
}

// ValidStyleCode reports whether code is a single "&x" style code
// understood by ParseStyled.
func ValidStyleCode(code string) bool {
	if len(code) != 2 || code[0] != '&' {
		return false
	}

	_, ok := styleCode(code[1])
	return ok
}

func styleCode(c byte) (byte, bool) {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}

	if _, ok := styleColors[c]; ok {
		return c, true
	}

	switch c {
	case 'k', 'l', 'm', 'n', 'o', 'r':
		return c, true
	}

	return 0, false
}

// ParseStyled converts text containing "&x" style codes into Text.
// Color codes reset bold and italic, &r resets everything.
// Unknown codes are kept verbatim.
func ParseStyled(s string) Text {
	var out Text
	var cur Fragment
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			f := cur
			f.Text = b.String()
			out = out.push(f)
			b.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '&' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}

		c, ok := styleCode(s[i+1])
		if !ok {
			b.WriteByte(s[i])
			continue
		}

		flush()
		i++

		if color, ok := styleColors[c]; ok {
			cur = Fragment{Color: color}
			continue
		}

		switch c {
		case 'l':
			cur.Bold = true
		case 'o':
			cur.Italic = true
		case 'r':
			cur = Fragment{}
		}
	}

	flush()
	return out
}

// StripStyle removes all style codes from s.
func StripStyle(s string) string {
	return ParseStyled(s).Plain()
}
