// ofs-client - command-line client for the OFS file system server
package main

import (
	"os"

	"github.com/ofs-tools/ofs-client/internal/cli"
	"github.com/ofs-tools/ofs-client/internal/version"
)

// Version information, replaced by -ldflags in release builds
var (
	Version   = "v0.4.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	// cobra has already printed the error
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
