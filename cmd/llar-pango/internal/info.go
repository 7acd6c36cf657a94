package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/pkgs/pkgconfig"
	"github.com/goplus/llar-pango/recipes/pango"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInfoCmd(f *globalFlags) *cobra.Command {
	var (
		format string
		prefix string
		pcDir  string
	)
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the published component graph",
		Long: `Info prints the components Pango publishes for the resolved configuration.
Formats are json, yaml and pc; with --format pc and --dir the .pc files are written
to a directory instead of stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(f)
			if err != nil {
				return err
			}
			r := c.resolve()
			info := r.PackageInfo(prefix)
			if err := info.Validate(r.Requirements()); err != nil {
				return err
			}
			return printInfo(cmd.OutOrStdout(), format, prefix, pcDir, info, c.deps)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, yaml or pc")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Package folder the paths are relative to")
	cmd.Flags().StringVar(&pcDir, "dir", "", "Write .pc files into this directory (pc format only)")
	return cmd
}

func printInfo(w io.Writer, format, prefix, pcDir string, info *formula.CppInfo, deps map[string]formula.Dependency) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	case "pc":
		files := pkgconfig.Files(pango.Name, pango.Version, prefix, info, pkgconfig.DepsResolver(deps))
		if pcDir != "" {
			paths, err := pkgconfig.WriteDir(pcDir, files)
			for _, p := range paths {
				fmt.Fprintln(w, p)
			}
			return err
		}
		for i := range files {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s.pc\n", files[i].Name)
			if _, err := files[i].WriteTo(w); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
