package main

import (
	"fmt"
	"os"

	"github.com/tphakala/surveygen/cmd"
	"github.com/tphakala/surveygen/internal/buildinfo"
	"github.com/tphakala/surveygen/internal/conf"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, buildinfo.NewContext(version, buildDate))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
