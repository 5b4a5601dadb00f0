package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ferro-labs/media-gateway/internal/requestlog"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var (
		driver   string
		dsn      string
		provider string
		limit    int
		offset   int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List recent proxied requests from the request log",
		Long: `List recent proxied requests, newest first.

The driver and DSN default to the request_log section of the effective
configuration.

Examples:
  mediagw-cli logs --driver sqlite --dsn mediagw-requests.db
  mediagw-cli logs --provider pexels --limit 20 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := effectiveConfig(cmd, true)
			if err != nil {
				return err
			}
			if driver == "" {
				driver = cfg.RequestLog.Driver
			}
			if dsn == "" {
				dsn = cfg.RequestLog.DSN
			}
			if driver == "" {
				return fmt.Errorf("request log is not configured; pass --driver or set REQUEST_LOG_DRIVER")
			}

			store, err := requestlog.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := store.List(cmd.Context(), requestlog.Query{Provider: provider, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tPROVIDER\tSTATUS\tCACHE\tBYTES\tDURATION\tPATH\tERROR")
			for _, e := range result.Data {
				cache := "miss"
				if e.CacheHit {
					cache = "hit"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%dms\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Provider, e.Status, cache,
					e.Bytes, e.DurationMS, e.Path, e.ErrorMessage)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d of %d entries\n", len(result.Data), result.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "request log driver: sqlite, postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "request log DSN")
	cmd.Flags().StringVar(&provider, "provider", "", "only show requests for this provider")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
