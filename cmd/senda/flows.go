package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sendahq/senda/internal/cli"
	"github.com/sendahq/senda/internal/config"
	"github.com/sendahq/senda/internal/logging"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Manage workflow state (chaos control)",
	Long: `List, inspect, and remove workflow state in the configured store.
With a redis or postgres backend this operates on the same state a running
server sees, so it works across processes.`,
}

var flowsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered definitions",
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		ids := rt.Engine.Definitions()
		if len(ids) == 0 {
			fmt.Println("No definitions registered.")
			return
		}
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var flowsInspectCmd = &cobra.Command{
	Use:   "inspect <flow-id>",
	Short: "Inspect the stored state of a flow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		ctx := cmd.Context()
		store := rt.Engine.Store()

		node, err := store.CurrentNode(ctx, args[0], "")
		if err != nil {
			fmt.Printf("Error reading '%s': %v\n", args[0], err)
			os.Exit(1)
		}
		vars, err := store.Variables(ctx, args[0])
		if err != nil {
			fmt.Printf("Error reading '%s': %v\n", args[0], err)
			os.Exit(1)
		}

		out, _ := json.MarshalIndent(map[string]any{
			"flow_id":      args[0],
			"current_node": node,
			"variables":    vars,
		}, "", "  ")
		fmt.Println(string(out))
	},
}

var flowsRmCmd = &cobra.Command{
	Use:   "rm <flow-id>...",
	Short: "Remove one or more flows",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rt := mustRuntime(cmd)
		defer rt.Close()

		hasError := false
		for _, id := range args {
			if err := rt.Engine.Remove(cmd.Context(), id); err != nil {
				fmt.Printf("Error removing '%s': %v\n", id, err)
				hasError = true
			} else {
				fmt.Printf("Removed flow '%s'\n", id)
			}
		}
		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsLsCmd)
	flowsCmd.AddCommand(flowsInspectCmd)
	flowsCmd.AddCommand(flowsRmCmd)
}

func mustRuntime(cmd *cobra.Command) *cli.Runtime {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if cmd.Flags().Changed("flows") {
		cfg.FlowsDir, _ = cmd.Flags().GetString("flows")
	}

	rt, err := cli.NewRuntime(cfg, logging.NewNop())
	if err != nil {
		fmt.Printf("Error connecting to store: %v\n", err)
		os.Exit(1)
	}
	return rt
}
