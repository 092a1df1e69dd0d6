// pushctl is the command-line client for the gitpusher workflow backend.
package main

import (
	"os"

	"github.com/gitpusher/pushkit/cmd/pushctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
