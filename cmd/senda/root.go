package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "senda",
	Short: "Senda is a conversational workflow engine",
	Long: `Senda runs graph-based conversational workflows defined in simple YAML
documents: register a definition, advance it choice by choice, and let
actions fill the variable bag along the way.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("flows", "flows", "Directory containing workflow definitions")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
