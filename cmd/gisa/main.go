// Command gisa runs the GISA voice assistant.
//
// Usage:
//
//	gisa [--config file] <command>
//
// Commands:
//
//	serve   - HTTP control surface and LiveKit room bridge
//	console - talk to the assistant with the local microphone and speaker
//	token   - issue a LiveKit access token
package main

import (
	"fmt"
	"os"

	"github.com/koscakluka/gisa/cmd/gisa/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
