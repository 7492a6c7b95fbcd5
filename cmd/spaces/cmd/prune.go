package cmd

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alpacapps/spaces/internal/repository"
)

func PruneTokensCmd() *cobra.Command {
	var olderThan time.Duration

	prune := &cobra.Command{
		Use:   "prune-tokens",
		Short: "Delete used and expired sign-in tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := environment()
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			n, err := repository.NewTokenRepository(database).CleanupExpired(olderThan)
			if err != nil {
				return err
			}
			slog.Info("tokens pruned", "count", n, "older_than", olderThan)
			cmd.Printf("Deleted %d tokens\n", n)
			return nil
		},
	}

	prune.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "keep tokens newer than this")
	return prune
}
