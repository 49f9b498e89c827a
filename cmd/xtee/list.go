package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"azoo.dev/utils/xtee/suite"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := suite.NewRegistry()
			if err := a.registerCases(r, nil); err != nil {
				return err
			}

			for _, c := range r.Cases() {
				fmt.Fprintf(a.out, "%s\t%s\n", c.ID, c.Title)
				if c.Description != "" {
					fmt.Fprintf(a.out, "\t%s\n", c.Description)
				}
			}
			return nil
		},
	}
}
