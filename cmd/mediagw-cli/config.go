package main

import (
	"encoding/json"
	"fmt"

	mediagw "github.com/ferro-labs/media-gateway"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	var (
		format string
		noEnv  bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := effectiveConfig(cmd, !noEnv)
			if err != nil {
				return err
			}
			cfg = maskSecrets(cfg)

			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json")
	cmd.Flags().BoolVar(&noEnv, "no-env", false, "ignore environment overrides")
	return cmd
}

func maskSecrets(cfg mediagw.Config) mediagw.Config {
	cfg.Freesound.APIKey = mask(cfg.Freesound.APIKey)
	cfg.Freesound.OAuthToken = mask(cfg.Freesound.OAuthToken)
	cfg.Pexels.APIKey = mask(cfg.Pexels.APIKey)
	cfg.Pexels.OAuthToken = mask(cfg.Pexels.OAuthToken)
	cfg.RequestLog.DSN = mask(cfg.RequestLog.DSN)
	return cfg
}

// mask keeps the last four characters of long secrets.
func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
