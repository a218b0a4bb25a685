package main

import (
	"fmt"
	"os"

	"github.com/benvon/questline/cmd/questline-admin/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "questline-admin",
		Short: "Administration tool for the Questline API",
		Long:  "CLI tool for checking backing services and running one-off content analysis",
	}

	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewAnalyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
