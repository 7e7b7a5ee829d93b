// Command ragqa answers questions about ingested PDFs and web pages. It
// provides a CLI interface (via Cobra) and an HTTP server with a web UI.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/ragqa/cmd/ragqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
