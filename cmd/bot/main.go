package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "werewolf-bot",
		Short: "Headless players for exercising a werewolf room",
	}
	root.AddCommand(playCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
