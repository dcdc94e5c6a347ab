// Package main is the entry point for the cmadmin CLI binary.
package main

import (
	"os"

	cli "cm-admin/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
