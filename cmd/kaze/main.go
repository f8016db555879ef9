// Command kaze is a terminal chat client for LLM providers with
// persistent, resumable sessions.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}
