package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sendahq/senda/pkg/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Check workflow definitions for consistency",
	Long: `Parses the given definition files (or every document in the flows
directory) and reports dangling transitions, unreachable nodes and other
structural problems. Unlike loading at startup, validation does not stop
at the first broken file.`,
	Run: func(cmd *cobra.Command, args []string) {
		paths := args
		if len(paths) == 0 {
			dir, _ := cmd.Flags().GetString("flows")
			paths = []string{dir}
		}

		checked, failures := 0, 0
		for _, path := range paths {
			for _, file := range definitionFiles(path) {
				checked++
				if _, err := loader.LoadFile(file); err != nil {
					failures++
					fmt.Printf("✗ %v\n", err)
				}
			}
		}

		if checked == 0 {
			fmt.Println("No definition files found.")
			os.Exit(1)
		}
		if failures > 0 {
			fmt.Printf("%d of %d definitions invalid.\n", failures, checked)
			os.Exit(1)
		}
		fmt.Printf("All %d definitions valid! ✅\n", checked)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// definitionFiles expands a path into the YAML documents beneath it. A path
// that is neither readable nor a directory is returned as-is so LoadFile can
// report the real error.
func definitionFiles(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return []string{path}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return []string{path}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files
}
