package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRequiresCmd(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "requires",
		Short: "Print the requirements of the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(f)
			if err != nil {
				return err
			}
			reqs := c.resolve().Requirements()
			out := cmd.OutOrStdout()
			for _, req := range reqs.List() {
				if req.TransitiveHeaders {
					fmt.Fprintf(out, "%s transitive_headers\n", req.Ref)
				} else {
					fmt.Fprintln(out, req.Ref)
				}
			}
			for _, tool := range reqs.Tools() {
				fmt.Fprintf(out, "%s tool\n", tool)
			}
			return nil
		},
	}
}
