package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crosswire-dev/crosswire/core/platform"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List platform targets and their accepted directive tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, target := range platform.Targets() {
				kind := "server"
				if platform.IsClient(target) {
					kind = "client"
				}
				tags := platform.AcceptedTags(target)
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-7s %s\n",
					target, kind, strings.Join(tags, ", "))
			}
			return nil
		},
	}
}
