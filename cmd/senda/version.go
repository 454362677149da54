package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sendahq/senda"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of senda",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("senda version %s\n", strings.TrimSpace(senda.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
