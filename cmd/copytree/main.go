// Package main is the entry point for the copytree CLI tool.
package main

import (
	"os"

	"github.com/copytree/copytree/internal/buildinfo"
	"github.com/copytree/copytree/internal/cli"
)

// Build-time metadata injected via ldflags; copied into internal/buildinfo
// so the rest of the program never imports package main.
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	goVersion = "unknown"
)

func main() {
	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date
	buildinfo.GoVersion = goVersion

	os.Exit(cli.Execute())
}
