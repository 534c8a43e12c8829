package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/leafkit/leaf"
	"github.com/spf13/cobra"
)

var (
	baseDir  string
	suffix   string
	varFlags []string
)

var renderCmd = &cobra.Command{
	Use:   "render [name]",
	Short: "Render a named template from a filesystem source set",
	Long: `Render a template by name, resolving it (and any inline dependencies)
from --base-dir, then write the rendered output to stdout.

Examples:
  leafrender render hello --base-dir ./templates --var name=world
  leafrender render hello --base-dir ./templates --suffix .leaf`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&baseDir, "base-dir", ".", "directory templates are resolved under")
	renderCmd.Flags().StringVar(&suffix, "suffix", "", "filename suffix appended to template names")
	renderCmd.Flags().StringArrayVar(&varFlags, "var", nil, "context variable as key=value (repeatable)")
}

func runRender(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	fs, err := leaf.NewFilesystemSource(baseDir, suffix)
	if err != nil {
		return err
	}
	sources := leaf.NewSourceSet(fs)

	renderer := leaf.NewRenderer(sources, leaf.NewMapCache(), cfg.BuildRegistry()).
		WithTagIndicator(cfg.TagIndicatorRune()).
		WithFastPathThreshold(cfg.FastPathThreshold())

	rctx, err := parseVars(varFlags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	future, err := renderer.Render(ctx, name, rctx)
	if err != nil {
		return err
	}
	out, err := future.Await(ctx)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(out)
	return err
}

func parseVars(pairs []string) (leaf.Context, error) {
	ctx := make(leaf.Context, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("--var %q must be key=value", p)
		}
		ctx[k] = v
	}
	return ctx, nil
}
