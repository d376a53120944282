/*
mt-build-plugin builds a chat plugin against the chat version
the tool was built for.

Usage:

	mt-build-plugin
*/
package main

import (
	"log"
	"os"
	"os/exec"

	"github.com/HimbeerserverDE/mt-multiserver-chat"
)

func main() {
	version, ok := chat.Version()
	if !ok {
		log.Fatal("unable to retrieve chat version")
	}

	log.Println("version:", version)

	pathVer := "github.com/HimbeerserverDE/mt-multiserver-chat@" + version

	if err := goCmd("get", "-u", pathVer); err != nil {
		log.Fatalln("error updating chat dependency:", err)
	}

	if err := goCmd("build", "-buildmode=plugin"); err != nil {
		log.Fatalln("error building plugin:", err)
	}

	if err := goCmd("mod", "tidy"); err != nil {
		log.Fatalln("error tidying modules:", err)
	}
}

func goCmd(args ...string) error {
	cmd := exec.Command("go", args...)

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
