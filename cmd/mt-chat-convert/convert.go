/*
mt-chat-convert converts between preference backends.

Usage:

	mt-chat-convert from to [fromDSN [toDSN]]

where from is the backend to convert from
and to is the backend to convert to.
Supported backends are files, sqlite3 and postgresql.
An empty DSN selects the default location of the backend.
*/
package main

import (
	"log"
	"os"

	"github.com/HimbeerserverDE/mt-multiserver-chat"
)

func main() {
	if len(os.Args) < 3 || len(os.Args) > 5 {
		log.Fatal("usage: mt-chat-convert from to [fromDSN [toDSN]]")
	}

	dsn := func(i int) string {
		if len(os.Args) > i {
			return os.Args[i]
		}

		return ""
	}

	inBackend, err := chat.OpenPrefsBackend(os.Args[1], dsn(3))
	if err != nil {
		log.Fatal("invalid input backend: ", err)
	}
	defer inBackend.Close()

	outBackend, err := chat.OpenPrefsBackend(os.Args[2], dsn(4))
	if err != nil {
		log.Fatal("invalid output backend: ", err)
	}
	defer outBackend.Close()

	if err := convert(outBackend, inBackend); err != nil {
		log.Fatal(err)
	}

	log.Print("conversion successful")
}

func convert(dst, src chat.PrefsBackend) error {
	prefs, err := src.Load()
	if err != nil {
		return err
	}

	return dst.Save(prefs)
}
