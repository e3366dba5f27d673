package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections in the vector store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.store.Collections(cmd.Context())
		if err != nil {
			return err
		}
		slices.Sort(names)
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "no collections")
			return nil
		}
		for _, name := range names {
			if name != a.index.Name() {
				fmt.Fprintln(out, labelStyle.Render(name))
				continue
			}
			n, err := a.index.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %d chunks (live)\n", titleStyle.Render(name), n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
