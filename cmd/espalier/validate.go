package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/validator"
	"github.com/aretw0/espalier/pkg/adapters/file"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow-id...]",
	Short: "Check flow definitions for consistency",
	Long:  `Loads flows from the flows directory and reports broken targets, unreachable nodes and invalid node configuration. With no arguments, validates every flow.`,
	Run: func(cmd *cobra.Command, args []string) {
		flowsDir, _ := cmd.Flags().GetString("flows")
		failed, err := runValidate(flowsDir, args)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if failed {
			os.Exit(1)
		}
		fmt.Println("All flows are valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(dir string, ids []string) (failed bool, err error) {
	provider, err := file.NewProvider(dir)
	if err != nil {
		return false, fmt.Errorf("failed to open flows directory: %w", err)
	}

	ctx := context.Background()
	if len(ids) == 0 {
		ids, err = provider.ListFlows(ctx)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return false, fmt.Errorf("no flows found in %s", dir)
		}
	}

	for _, id := range ids {
		flow, err := provider.GetFlow(ctx, id)
		if err != nil {
			fmt.Printf("%s: %v\n", id, err)
			failed = true
			continue
		}
		issues := validator.ValidateFlow(flow)
		if len(issues) == 0 {
			continue
		}
		failed = true
		fmt.Printf("%s:\n", id)
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	return failed, nil
}
