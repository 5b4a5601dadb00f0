package main

import (
	"fmt"
	"strings"

	mediagw "github.com/ferro-labs/media-gateway"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a gateway configuration file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mediagw.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if err := mediagw.ValidateConfig(*cfg); err != nil {
				return fmt.Errorf("validation error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "✓ Config is valid")
			fmt.Fprintf(out, "  Port:         %s\n", cfg.Port)
			fmt.Fprintf(out, "  Environment:  %s\n", cfg.Environment)
			fmt.Fprintf(out, "  Cache:        ttl=%s max_entries=%d\n", cfg.Cache.TTL, cfg.Cache.MaxEntries)
			fmt.Fprintf(out, "  Rate limit:   %d per %s\n", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
			if cfg.Download.AllowAnyHost {
				fmt.Fprintln(out, "  Downloads:    any host (allow-list disabled)")
			} else {
				fmt.Fprintf(out, "  Downloads:    %s\n", strings.Join(cfg.Download.AllowedHosts, ", "))
			}
			if cfg.RequestLog.Driver != "" {
				fmt.Fprintf(out, "  Request log:  %s (retention %s)\n", cfg.RequestLog.Driver, cfg.RequestLog.Retention)
			}
			return nil
		},
	}
}
