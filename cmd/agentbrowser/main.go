// Command agentbrowser drives a headless browser from the terminal. One-shot
// commands load a URL and print what was asked for; repl executes a stream
// of XML tool calls against one long-lived browser session.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
