// Package main provides the entry point for the cartable command-line tool.
package main

import (
	"github.com/cartable-app/cartable/cmd/cli"
)

func main() {
	cli.Execute()
}
