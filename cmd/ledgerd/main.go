package main

import (
	"os"

	"github.com/ndewijer/investment-ledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
