package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			v, err := c.start(cmd.Context(), cfg, c.logger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tFILE")
			reg := v.Registry()
			for _, key := range reg.Keys() {
				e, _ := reg.Lookup(key)
				fmt.Fprintf(tw, "%s\t%s\n", key, e.Document.FileName)
			}
			return tw.Flush()
		},
	}
}
