package internal

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func newOptionsCmd(f *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print the resolved options",
		Long: `Options prints the platform settings and the recipe options after every "auto"
value has been decided for the target platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				writeSection(out, "options", c.options.Map())
				return nil
			}
			r := c.resolve()
			writeSection(out, "settings", r.Platform.Settings())
			writeSection(out, "options", r.Map())
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the options before resolution")
	return cmd
}

// writeSection writes kvs as an ini-style section sorted by key.
func writeSection(w io.Writer, name string, kvs map[string]string) {
	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "[%s]\n", name)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%s\n", k, kvs[k])
	}
}
