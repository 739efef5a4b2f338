package main

import (
	"os"

	"github.com/okian/elovote/cmd/elovote/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
