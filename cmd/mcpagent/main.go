// Command mcpagent runs a Gemini-driven agent that can call tools served by
// MCP servers and a built-in workspace provider.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
