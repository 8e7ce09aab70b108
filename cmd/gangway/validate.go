package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gangwayhq/gangway/pkg/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a step registry for consistency",
	Long:  `Loads a YAML step registry and reports duplicate IDs, unknown or self-referential dependencies, and dependency cycles.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		reg *registry.Registry
		err error
	)
	if len(args) > 0 {
		reg, err = registry.LoadYAMLFile(args[0])
	} else {
		reg, err = loadRegistry(cmd)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%d steps, %d required\n", reg.Len(), countRequired(reg))
	return nil
}

func countRequired(reg *registry.Registry) int {
	n := 0
	for _, step := range reg.Steps() {
		if step.Required {
			n++
		}
	}
	return n
}
