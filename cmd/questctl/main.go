package main

import (
	"os"

	"github.com/fruitytales/questsite/cmd/questctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
