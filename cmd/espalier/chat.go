package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/file"
)

// chatCmd drives one flow interactively on the console, which is the fastest
// way to try a flow while authoring it.
var chatCmd = &cobra.Command{
	Use:   "chat <flow-id>",
	Short: "Run a flow interactively on the console",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(cmd, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("session", "console", "Session id to use")
	chatCmd.Flags().Bool("system", false, "Also print system directives (warnings, degradations)")
}

func runChat(cmd *cobra.Command, flowID string) error {
	flowsDir, _ := cmd.Flags().GetString("flows")
	sessionID, _ := cmd.Flags().GetString("session")
	showSystem, _ := cmd.Flags().GetBool("system")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")

	logger := logging.New(logging.ParseLevel(logLevel), logFormat)
	slog.SetDefault(logger)

	flows, err := file.NewProvider(flowsDir)
	if err != nil {
		return fmt.Errorf("failed to load flows from %s: %w", flowsDir, err)
	}

	eng, err := espalier.New(flows, espalier.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}

	runner := &espalier.Runner{
		Input:      os.Stdin,
		Output:     os.Stdout,
		FlowID:     flowID,
		SessionID:  sessionID,
		ShowSystem: showSystem,
	}
	return runner.Run(context.Background(), eng)
}
