// Package main provides the querypipe CLI entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/querypipe/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
