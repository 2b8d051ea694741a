package main

import (
	"os"

	"github.com/enoch4gor/btc-dca-backtester/cmd/dcabt/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
