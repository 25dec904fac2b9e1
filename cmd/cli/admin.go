package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/statusservice/sdk/go/statusclient"
)

func newLogsCmd() *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent request logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := client().Logs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(out(cmd)).Encode(logs)
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tIP\tMETHOD\tPATH\tSTATUS\tOVERFLOW")
			for _, l := range logs {
				ref := "-"
				if l.OverflowRef != nil {
					ref = *l.OverflowRef
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", l.ID, l.Timestamp.Format(time.RFC3339), l.IP, l.Method, l.Path, l.StatusCode, ref)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "number of records (1-1000)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newBlocklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocklist",
		Short: "List banned clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := client().Blocklist(cmd.Context())
			if err != nil {
				return err
			}
			ips := make([]string, 0, len(entries))
			for ip := range entries {
				ips = append(ips, ip)
			}
			sort.Strings(ips)

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IP\tBANNED AT\tREASON")
			for _, ip := range ips {
				e := entries[ip]
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ip, e.BannedAt.Format(time.RFC3339), e.Reason)
			}
			return tw.Flush()
		},
	}
}

func newUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <ip>",
		Short: "Remove a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := client().Unblock(cmd.Context(), args[0])
			if errors.Is(err, statusclient.ErrNotBlocked) {
				return fmt.Errorf("%s is not blocked", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "IP %s unblocked\n", args[0])
			return nil
		},
	}
}

func newLimitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits <ip>",
		Short: "Show a client's sliding window usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := client().Limits(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s banned=%t minute=%d/%d ten_minutes=%d/%d\n",
				l.IP, l.Banned, l.Windows.Minute, l.Limits.Minute, l.Windows.TenMinutes, l.Limits.TenMinutes)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s (%s)\n", h.Status, h.Time)
			names := make([]string, 0, len(h.Checks))
			for name := range h.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out(cmd), "  %s: %s\n", name, h.Checks[name])
			}
			if h.Status != "OK" {
				return errors.New("service is degraded")
			}
			return nil
		},
	}
}
