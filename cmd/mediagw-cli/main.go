// Package main provides the mediagw-cli command-line tool for inspecting
// media gateway configuration and its request log.
package main

import (
	"fmt"
	"os"

	mediagw "github.com/ferro-labs/media-gateway"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mediagw-cli",
		Short: "mediagw-cli: media gateway command line tool",
		Long: `mediagw-cli validates gateway configuration files, prints the effective
configuration (file plus environment overrides, secrets masked) and lists
entries from the request log.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", os.Getenv("MEDIAGW_CONFIG"), "config file path (JSON or YAML)")

	root.AddCommand(
		newValidateCmd(),
		newConfigCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return root
}

// effectiveConfig loads the --config file (if any) and, when withEnv is set,
// applies environment overrides the same way the server does.
func effectiveConfig(cmd *cobra.Command, withEnv bool) (mediagw.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := mediagw.DefaultConfig()
	if path != "" {
		loaded, err := mediagw.LoadConfig(path)
		if err != nil {
			return mediagw.Config{}, fmt.Errorf("loading config: %w", err)
		}
		cfg = *loaded
	}
	if withEnv {
		if err := mediagw.ApplyEnv(&cfg, os.LookupEnv); err != nil {
			return mediagw.Config{}, err
		}
	}
	return cfg, nil
}
