// Package main is the entry point for the fireant CLI binary.
package main

import (
	"os"

	"fireant/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
