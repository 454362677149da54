package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sendahq/senda/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workflow interactively",
	Long: `Starts a workflow from the flows directory and walks it on the terminal.
With a single definition in the directory it runs that one; otherwise pick
one with --flow.`,
	Run: func(cmd *cobra.Command, args []string) {
		flowsDir, _ := cmd.Flags().GetString("flows")
		if !cmd.Flags().Changed("flows") && len(args) > 0 {
			flowsDir = args[0]
		}
		flowID, _ := cmd.Flags().GetString("flow")
		commands, _ := cmd.Flags().GetString("commands")
		headless, _ := cmd.Flags().GetBool("headless")
		plain, _ := cmd.Flags().GetBool("plain")
		debug, _ := cmd.Flags().GetBool("debug")

		err := cli.Execute(cli.RunOptions{
			FlowsDir: flowsDir,
			FlowID:   flowID,
			Commands: commands,
			Headless: headless,
			Debug:    debug,
			Plain:    plain,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("flow", "f", "", "Id of the definition to run")
	runCmd.Flags().String("commands", "", "Path to a command manifest binding actions to local processes")
	runCmd.Flags().Bool("headless", false, "Run in headless mode (no prompts, strict IO)")
	runCmd.Flags().Bool("plain", false, "Disable markdown rendering")

	// Make 'run' the default if no command is provided.
	rootCmd.Run = runCmd.Run
}
