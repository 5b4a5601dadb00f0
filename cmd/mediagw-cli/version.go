package main

import (
	"fmt"
	"runtime"

	"github.com/ferro-labs/media-gateway/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mediagw-cli %s\n", version.String())
			fmt.Fprintf(cmd.OutOrStdout(), "Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
