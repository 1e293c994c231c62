// Package main implements the asmcfg CLI.
// It builds control flow graphs from assembly sources, converts graph files
// between formats and compares graphs.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/l3aro/asmcfg/cmd/asmcfg/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	// ASMCFG_* settings may come from a local .env file
	_ = godotenv.Load()

	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (" + buildTime + ")"
	}
	commands.RootCmd.SetVersionTemplate(`asmcfg version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
