package internal

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/llar-pango/internal/build"
	"github.com/goplus/llar-pango/internal/logging"
	"github.com/goplus/llar-pango/internal/source"
	"github.com/goplus/llar-pango/recipes/pango"
	"github.com/spf13/cobra"
)

var _ build.Recipe = (*pango.Recipe)(nil)

type buildFlags struct {
	force      bool
	systemDeps bool
	meson      string
	version    string
	workspace  string
	output     string
}

func newBuildCmd(f *globalFlags) *cobra.Command {
	bf := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch, build and package Pango",
		Long: `Build downloads the Pango sources, configures and compiles them with Meson and
installs the result into the workspace. A package with the same id is reused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, f, bf)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&bf.force, "force", false, "Rebuild even if the package is cached")
	flags.BoolVar(&bf.systemDeps, "system-deps", false, "Let Meson find requirements missing from the profile on the system")
	flags.StringVar(&bf.meson, "meson", "meson", "Meson executable")
	flags.StringVar(&bf.version, "version", pango.Version, "Pango version to build")
	flags.StringVar(&bf.workspace, "workspace", "", "Workspace directory (default $LLAR_PANGO_WORKDIR or the user cache dir)")
	flags.StringVar(&bf.output, "out", "", "Copy the package to a directory or .zip file")
	return cmd
}

func runBuild(cmd *cobra.Command, f *globalFlags, bf *buildFlags) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	c, err := loadConfig(f)
	if err != nil {
		return err
	}

	// Resolve output path to absolute before the build changes folders
	if bf.output != "" {
		abs, err := filepath.Abs(bf.output)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		bf.output = abs
	}

	toolOut, toolErr := io.Discard, io.Discard
	if f.verbose {
		toolOut, toolErr = cmd.ErrOrStderr(), cmd.ErrOrStderr()
	}
	recipe, err := pango.New(c.options, c.platform,
		pango.WithVersion(bf.version),
		pango.WithMeson(bf.meson),
		pango.WithFetcher(source.NewFetcher(source.WithLogger(logger))),
		pango.WithOutput(toolOut, toolErr),
	)
	if err != nil {
		return err
	}

	builder, err := build.NewBuilder(build.Options{
		WorkspaceDir: bf.workspace,
		Logger:       logger,
		Force:        bf.force,
		SystemDeps:   bf.systemDeps,
	})
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	res, err := builder.Build(ctx, recipe, c.deps)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", recipe.Ref(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, res.Metadata)
	fmt.Fprintf(out, "package_id=%s\n", res.PackageID)
	fmt.Fprintf(out, "package_folder=%s\n", res.Dir)

	if bf.output != "" {
		if err := outputResult(res.Dir, bf.output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// outputResult writes the package folder to dest.
// If dest ends with ".zip", creates a zip archive; otherwise copies the directory.
func outputResult(srcDir, dest string) error {
	if strings.HasSuffix(dest, ".zip") {
		return zipDir(srcDir, dest)
	}
	return os.CopyFS(dest, os.DirFS(srcDir))
}

// zipDir creates a zip archive at dest from the contents of srcDir.
func zipDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	w := zip.NewWriter(f)
	err = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
	// Close writes the central directory; without it the archive is unreadable.
	if err == nil {
		err = w.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
