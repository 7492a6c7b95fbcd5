package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alpacapps/spaces/internal/poller"
	"github.com/alpacapps/spaces/internal/storage"
)

func PollCamerasCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	poll := &cobra.Command{
		Use:   "poll-cameras",
		Short: "Copy camera snapshots into storage for the imagery page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := environment()

			cameras, err := poller.LoadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := storage.New(cfg)
			if err != nil {
				return err
			}

			p := poller.New(cameras, store)
			defer p.Close()

			if once {
				n, err := p.PollOnce(cmd.Context())
				cmd.Printf("Uploaded %d of %d snapshots\n", n, len(cameras.Cameras))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return p.Run(ctx)
		},
	}

	poll.Flags().StringVar(&configPath, "config", "cameras.yaml", "camera list (YAML)")
	poll.Flags().BoolVar(&once, "once", false, "poll every camera once and exit")
	return poll
}
