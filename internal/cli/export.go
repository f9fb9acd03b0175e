package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/pipeline"
)

// exportFlags holds the flags of the export command.
type exportFlags struct {
	output    string
	formats   string
	style     string
	scale     float64
	direction string
	organize  bool
	noCache   bool
	refresh   bool
}

// exportCommand creates "export", which renders a map to files.
func (c *CLI) exportCommand() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Render a mind map to SVG, PNG, PDF, DOT, YAML or JSON",
		Long: `Render a mind map to one or more formats.

Formats default to the [export] section of the config file. With a single
format, --output names the file; with several it is the base path and each
format gets its extension. Without --output the input's base path is used.

Rendered files are cached by document content and options, so exporting an
unchanged map again is immediate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.config().ExportOptions()
			flags := cmd.Flags()
			if formats := parseFormats(f.formats); formats != nil {
				opts.Formats = formats
			}
			if flags.Changed("style") {
				opts.Style = f.style
			}
			if flags.Changed("scale") {
				opts.Scale = f.scale
			}
			if flags.Changed("direction") {
				opts.Direction = layout.Direction(f.direction)
			}
			opts.Organize = f.organize
			opts.Refresh = f.refresh
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runExport(cmd.Context(), args[0], f.output, opts, f.noCache)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): "+strings.Join(pipeline.Formats, ", ")+" (comma-separated)")
	cmd.Flags().StringVar(&f.style, "style", pipeline.DefaultStyle, "visual style: classic, plain")
	cmd.Flags().Float64Var(&f.scale, "scale", pipeline.DefaultScale, "PNG scale factor (0.1 to 4)")
	cmd.Flags().StringVar(&f.direction, "direction", string(layout.DirectionRight), "graph direction for DOT and --organize: right, down, left, up")
	cmd.Flags().BoolVar(&f.organize, "organize", false, "lay out the map automatically before rendering (the file is not changed)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached renderings")
	return cmd
}

func (c *CLI) runExport(ctx context.Context, input, output string, opts pipeline.Options, noCache bool) error {
	doc, err := pkgio.ImportJSON(input)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = loggerFromContext(ctx)

	spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()
	res, err := runner.Export(ctx, doc, opts)
	if err != nil {
		spinner.StopWithError("Export failed")
		if pkgerrors.Is(err, pkgerrors.ErrCodeUnsupported) {
			printWarning("PDF export needs rsvg-convert (librsvg) on PATH")
		}
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(res.Artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}
	printSuccess("Exported %s", filepath.Base(input))
	fmt.Println(formatStats(doc.Stats(), res.CacheInfo.AllHit(opts.Formats)))
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// outputPaths maps each format to its output file.
func outputPaths(formats []string, input, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		ext := f
		if f == pipeline.FormatJSON {
			// Do not overwrite the input document.
			ext = "export.json"
		}
		paths[f] = base + "." + ext
	}
	return paths
}

// basePath strips a known format extension from output, or derives the base
// from input when output is empty.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if slices.Contains(pipeline.Formats, ext) {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}

// writeArtifacts writes every rendered format and returns the paths written,
// in format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	targets := outputPaths(formats, input, output)
	var written []string
	for _, f := range formats {
		path := targets[f]
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return written, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "create %s", dir)
			}
		}
		if err := pkgio.WriteFileAtomic(path, artifacts[f]); err != nil {
			return written, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "write %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}
