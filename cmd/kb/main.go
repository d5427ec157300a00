// Command kb drives the knowledge base from the terminal using the same
// configuration as the server.
package main

import (
	"os"

	"knowledge-base/internal/pkg/logger"
)

func main() {
	_ = logger.Init("warn")
	defer logger.Sync()

	if err := newRootCmd(openBackend).Execute(); err != nil {
		os.Exit(1)
	}
}
