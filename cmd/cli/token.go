package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/statusservice/sdk/go/statusclient"
)

func newTokenCmd() *cobra.Command {
	var secret, subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for a server configured with admin.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("STATUSSERVICE_ADMIN_JWT_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or STATUSSERVICE_ADMIN_JWT_SECRET is required")
			}
			tok, err := statusclient.MintAdminToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret")
	cmd.Flags().StringVar(&subject, "subject", "statusctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
