/*
mt-multiserver-chat runs the chat pipeline with a telnet console
and, if enabled, relays global chat to other servers.

Usage:

	mt-multiserver-chat

Configuration is read from config.json next to the executable.
Send SIGUSR1 to reload preferences.
*/
package main

import "github.com/HimbeerserverDE/mt-multiserver-chat"

func main() {
	chat.Run()
}
