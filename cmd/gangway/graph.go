package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gangwayhq/gangway/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the step dependency graph",
	Long:  `Outputs a Mermaid diagram (graph TD) of the step registry: required, optional, and government-mandated steps with their dependency edges.`,
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry(cmd)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(reg, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
