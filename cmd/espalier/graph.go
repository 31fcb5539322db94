package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/adapters/file"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <flow-id>",
	Short: "Export a flow graph visualization",
	Long:  `Loads a flow definition and outputs a Mermaid diagram (graph TD) representing the conversation logic.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flowsDir, _ := cmd.Flags().GetString("flows")

		provider, err := file.NewProvider(flowsDir)
		if err != nil {
			fmt.Printf("Error opening flows directory: %v\n", err)
			os.Exit(1)
		}

		flow, err := provider.GetFlow(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(flow, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
