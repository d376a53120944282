package chat

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestParseStyled(t *testing.T) {
	got := ParseStyled("&7[&6me &7-> &6Bob&7] &fhi")

	want := Text{
		{Text: "[", Color: ColorGray},
		{Text: "me ", Color: ColorGold},
		{Text: "-> ", Color: ColorGray},
		{Text: "Bob", Color: ColorGold},
		{Text: "] ", Color: ColorGray},
		{Text: "hi", Color: ColorWhite},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d fragments, want %d: %#v", len(got), len(want), got)
	}

	for i := range want {
		if got[i].Text != want[i].Text || got[i].Color != want[i].Color {
			t.Errorf("fragment %d: got %q/%s, want %q/%s", i, got[i].Text, got[i].Color, want[i].Text, want[i].Color)
		}
	}
}

func TestParseStyledFormatting(t *testing.T) {
	got := ParseStyled("&l&ebold&r plain &x")
	if len(got) != 2 {
		t.Fatalf("got %#v", got)
	}

	if got[0].Bold || got[0].Color != ColorYellow || got[0].Text != "bold" {
		t.Errorf("color code should reset bold: %#v", got[0])
	}

	if got[1].Color != "" || got[1].Text != " plain &x" {
		t.Errorf("got %#v", got[1])
	}

	if s := StripStyle("&eHello &lWorld&r!"); s != "Hello World!" {
		t.Errorf("StripStyle: got %q", s)
	}

	if s := ParseStyled("trailing &").Plain(); s != "trailing &" {
		t.Errorf("trailing ampersand: got %q", s)
	}
}

func TestValidStyleCode(t *testing.T) {
	for code, want := range map[string]bool{
		"&e":  true,
		"&E":  true,
		"&l":  true,
		"&z":  false,
		"e":   false,
		"&ee": false,
	} {
		if got := ValidStyleCode(code); got != want {
			t.Errorf("ValidStyleCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestTextAppendMerges(t *testing.T) {
	txt := Colored("a", ColorRed).Append(Colored("b", ColorRed), Literal(""), Literal("c"))
	if len(txt) != 2 || txt[0].Text != "ab" || txt[1].Text != "c" {
		t.Fatalf("got %#v", txt)
	}

	hover := Text{{Text: "x", Color: ColorRed, Hover: Literal("tip")}}
	if got := hover.Append(Colored("y", ColorRed)); len(got) != 2 {
		t.Errorf("fragments with hover must not merge: %#v", got)
	}
}

func TestMinetestRender(t *testing.T) {
	got := Text{{Text: "G ", Color: ColorRed}, {Text: "hi\x1b"}}.Minetest()
	want := Colorize("G ", ColorRed) + "hi"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestANSIRender(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, termenv.TrueColor)

	out := Text{{Text: "warn", Color: ColorRed}, {Text: " plain"}}.ANSI(r)
	if !strings.Contains(out, "warn") || !strings.Contains(out, " plain") {
		t.Errorf("rendered text lost content: %q", out)
	}

	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected escape sequences in %q", out)
	}
}
