package main

import (
	"os"

	"github.com/ocarinaa/formweaver/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
