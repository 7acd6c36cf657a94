package internal

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/goplus/llar-pango/internal/logging"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	options []string
	os      string
	arch    string
	profile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	f := &globalFlags{}
	root := &cobra.Command{
		Use:   "llar-pango",
		Short: "llar-pango builds the Pango text-layout library",
		Long: `llar-pango resolves the build options of Pango for a platform, builds it with Meson
and publishes its component graph for consumers.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if f.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logging.New(cmd.ErrOrStderr(), level)))
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&f.options, "option", "o", nil, "Set a recipe option as key=value (repeatable)")
	pf.StringVar(&f.os, "os", "", "Target operating system (Linux, FreeBSD, Macos, Windows)")
	pf.StringVar(&f.arch, "arch", "", "Target architecture")
	pf.StringVar(&f.profile, "profile", "", "Load settings, options and dependencies from a TOML profile")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(newOptionsCmd(f))
	root.AddCommand(newRequiresCmd(f))
	root.AddCommand(newInfoCmd(f))
	root.AddCommand(newIDCmd(f))
	root.AddCommand(newMatrixCmd())
	root.AddCommand(newBuildCmd(f))
	return root
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
