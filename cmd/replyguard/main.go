// Command replyguard masks PII in customer messages, retrieves context from
// a local document index and drafts display-safe replies.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cli.SetBootstrap(buildServices)
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
