package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIDCmd(f *globalFlags) *cobra.Command {
	var metadata bool
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Print the package id of the resolved configuration",
		Long: `Id prints the binary identity of the resolved configuration. Dependencies
linked statically take part with the package id given in the profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(f)
			if err != nil {
				return err
			}
			r := c.resolve()
			deps, err := r.ApplyDependencyOptions(c.deps)
			if err != nil {
				return err
			}
			id := r.PackageID(deps)
			out := cmd.OutOrStdout()
			if metadata {
				fmt.Fprint(out, id.String())
			}
			fmt.Fprintln(out, id.ID())
			return nil
		},
	}
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Also print the text the id is computed from")
	return cmd
}
