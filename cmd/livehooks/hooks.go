package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/pkg/hooks/standard"
)

func hooksCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "List the hooks in the standard bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			reg := standard.Hooks(standard.Options{MobileBreakpoint: float64(cfg.Client.MobileBreakpoint)})
			for _, name := range reg.Names() {
				info(cmd, "%s", name)
			}
			return nil
		},
	}
}
