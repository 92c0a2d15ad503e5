// Package main provides the entry point for the gateway-plugin CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/opencode-gateway/cmd/gateway-plugin/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
