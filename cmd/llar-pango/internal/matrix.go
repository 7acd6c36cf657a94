package internal

import (
	"fmt"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/internal/logging"
	"github.com/goplus/llar-pango/recipes/pango"
	"github.com/spf13/cobra"
)

func newMatrixCmd() *cobra.Command {
	var (
		count bool
		ids   bool
	)
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Enumerate the configuration matrix",
		Long: `Matrix lists every combination of target OS and option values. With --ids each
combination is resolved and printed with its package id; combinations resolving to
the same configuration share an id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := pango.Matrix()
			out := cmd.OutOrStdout()
			if count {
				fmt.Fprintln(out, m.CombinationCount())
				return nil
			}
			logger := logging.FromContext(cmd.Context())
			distinct := map[string]bool{}
			for _, pt := range m.Points() {
				if !ids {
					fmt.Fprintln(out, pt)
					continue
				}
				id, err := pointID(pt)
				if err != nil {
					return err
				}
				distinct[id] = true
				fmt.Fprintf(out, "%s %s\n", pt, id)
			}
			if ids {
				logger.Info("resolved matrix", "combinations", m.CombinationCount(), "distinct", len(distinct))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&count, "count", false, "Only print the number of combinations")
	cmd.Flags().BoolVar(&ids, "ids", false, "Print the package id of each combination")
	return cmd
}

// pointID resolves pt on the host platform with its OS replaced.
func pointID(pt formula.Point) (string, error) {
	p := formula.HostPlatform()
	if v, ok := pt.Require["os"]; ok {
		target, err := formula.ParseOS(v)
		if err != nil {
			return "", err
		}
		p.OS = target
	}
	opts := pango.DefaultOptions()
	for k, v := range pt.Options {
		if err := opts.Set(k, v); err != nil {
			return "", err
		}
	}
	r := opts.Resolve(p)
	deps, err := r.ApplyDependencyOptions(nil)
	if err != nil {
		return "", err
	}
	return r.PackageID(deps).ID(), nil
}
