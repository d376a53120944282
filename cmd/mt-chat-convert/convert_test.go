package main

import (
	"path/filepath"
	"testing"

	"github.com/HimbeerserverDE/mt-multiserver-chat"
)

func TestConvert(t *testing.T) {
	dir := t.TempDir()

	src, err := chat.NewPrefsFiles(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatal(err)
	}

	dst, err := chat.NewPrefsSQLite("sqlite", filepath.Join(dir, "prefs.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	alice, bob := chat.IdentityFor("alice"), chat.IdentityFor("bob")

	prefs := chat.NewPrefs()
	prefs.ChatModes[alice] = chat.ModeGlobal
	prefs.DMEnabled[bob] = false
	prefs.Ignores[alice] = map[chat.Identity]struct{}{bob: {}}

	if err := src.Save(prefs); err != nil {
		t.Fatal(err)
	}

	if err := convert(dst, src); err != nil {
		t.Fatal(err)
	}

	got, err := dst.Load()
	if err != nil {
		t.Fatal(err)
	}

	if got.ChatModes[alice] != chat.ModeGlobal {
		t.Errorf("chat mode = %v", got.ChatModes[alice])
	}

	if enabled, ok := got.DMEnabled[bob]; !ok || enabled {
		t.Errorf("dm setting = %v, %v", enabled, ok)
	}

	if _, ok := got.Ignores[alice][bob]; !ok {
		t.Error("ignore entry lost")
	}
}
