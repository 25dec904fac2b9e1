// Package cli implements statusctl, the operator CLI for StatusService.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/statusservice/sdk/go/statusclient"
)

var (
	serverURL string
	token     string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "statusctl",
		Short:         "Operate a StatusService instance",
		Long:          "statusctl reads request logs, inspects rate limits and manages the blocklist of a running StatusService.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", envOr("STATUSCTL_SERVER", "http://localhost:5000"), "StatusService base URL")
	cmd.PersistentFlags().StringVar(&token, "token", os.Getenv("STATUSCTL_TOKEN"), "admin bearer token")

	cmd.AddCommand(newLogsCmd(), newBlocklistCmd(), newUnblockCmd(), newLimitsCmd(), newHealthCmd(), newTokenCmd())
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func client() *statusclient.Client {
	return statusclient.New(serverURL, statusclient.WithToken(token))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
