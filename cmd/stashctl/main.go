package main

import (
	"os"

	"github.com/fastprodman/stashledger/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil {
		os.Exit(1)
	}
}
