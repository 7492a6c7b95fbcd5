package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alpacapps/spaces/cmd/spaces/cmd"
	"github.com/alpacapps/spaces/internal/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "spaces",
		Short:         "Operations tools for the Spaces admin",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.InviteCmd())
	rootCmd.AddCommand(cmd.PollCamerasCmd())
	rootCmd.AddCommand(cmd.PruneTokensCmd())
	rootCmd.AddCommand(cmd.DevCmd())

	err := rootCmd.Execute()
	logger.Flush()
	if err != nil {
		os.Exit(1)
	}
}
