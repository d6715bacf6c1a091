package main

import (
	"os"

	"github.com/ridoystarlord/pgguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
