package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sendahq/senda/internal/presentation/graph"
	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/loader"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export a workflow as a Mermaid diagram",
	Long: `Loads a definition and prints a Mermaid diagram (graph TD) of its
nodes and transitions. Pass a file, or let it pick from the flows
directory with --flow.`,
	Run: func(cmd *cobra.Command, args []string) {
		def, err := resolveDefinition(cmd, args)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(graph.Mermaid(def, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("flow", "f", "", "Id of the definition to render")
}

func resolveDefinition(cmd *cobra.Command, args []string) (*flow.Definition, error) {
	if len(args) > 0 {
		return loader.LoadFile(args[0])
	}

	dir, _ := cmd.Flags().GetString("flows")
	defs, err := loader.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	flowID, _ := cmd.Flags().GetString("flow")
	if flowID != "" {
		for _, def := range defs {
			if def.ID == flowID {
				return def, nil
			}
		}
		return nil, fmt.Errorf("definition %q not found in %s", flowID, dir)
	}

	switch len(defs) {
	case 0:
		return nil, fmt.Errorf("no definitions in %s", dir)
	case 1:
		return defs[0], nil
	default:
		ids := make([]string, len(defs))
		for i, def := range defs {
			ids[i] = def.ID
		}
		return nil, fmt.Errorf("multiple definitions in %s, pick one with --flow: %v", dir, ids)
	}
}
