package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/spf13/cobra"
)

// DevCmd replaces the process with air, rebuilding the server whenever Go
// code, templates or static files change.
func DevCmd() *cobra.Command {
	var port string

	dev := &cobra.Command{
		Use:   "dev",
		Short: "Run the server with hot reload (requires air)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			airPath, err := exec.LookPath("air")
			if err != nil {
				cmd.PrintErrln("Missing binary: air")
				cmd.PrintErrln("Install with:")
				cmd.PrintErrln("  go install github.com/air-verse/air@latest")
				return fmt.Errorf("air not found")
			}

			airArgs := []string{
				"air",
				"-c", "/dev/null",
				"-root", ".",
				"-build.cmd", "go build -o ./tmp/server ./cmd/server",
				"-build.bin", "./tmp/server",
				"-build.delay", "100",
				"-build.exclude_dir", "bin,tmp,data,_examples",
				"-build.exclude_regex", "_test.go$",
				"-build.include_ext", "go,html,css,js,sql",
				"-build.kill_delay", "500ms",
				"-build.send_interrupt", "true",
			}

			env := append(os.Environ(), "PORT="+port, "APP_ENV=development")
			return syscall.Exec(airPath, airArgs, env)
		},
	}

	dev.Flags().StringVar(&port, "port", "8090", "port for the development server")
	return dev
}
