// Package main provides the bakebatch CLI entry point.
package main

import (
	"os"

	"bakebatch/internal/cli"
)

func main() {
	app := cli.NewApp()
	rootCmd := app.CreateRootCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
