package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/types"
)

var buildCmd = &cobra.Command{
	Use:     "build [files...]",
	Aliases: []string{"b"},
	Short:   "Compile a JavaScript or CSS bundle",
	Long: `Merge the given files (relative to --dir) into a content-addressed bundle
under the output directory. Nothing is rewritten unless a watched file is
newer than the existing bundle; --force rebuilds unconditionally.

Examples:
  assetloader build --dir public --kind css css/reset.css css/app.css
  assetloader build --dir public --kind js js/app.js --format json
  assetloader build --dir public --kind js js/app.js --force`,
	RunE: runBuild,
}

var (
	buildFlags *StandardFlags
	buildForce bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildFlags = AddStandardFlags(buildCmd, "bundle", "output")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild even when the bundle is fresh")
}

// buildReport is the machine-readable build result.
type buildReport struct {
	Kind      string                    `json:"kind" yaml:"kind"`
	Artifacts []types.GeneratedArtifact `json:"artifacts" yaml:"artifacts"`
	Rebuilt   int                       `json:"rebuilt" yaml:"rebuilt"`
	Warnings  []string                  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	if err := buildFlags.ValidateFlags(); err != nil {
		return err
	}
	kind, _ := buildFlags.AssetKind()

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	bundle, err := a.factory(nil).New(ctx, kind, buildFlags.AssetDir(a.cfg.Assets.Root), args)
	if err != nil {
		return err
	}

	perf := logging.StartOperation(a.logger, "build")
	artifacts, err := bundle.Compiler.Generate(ctx, !buildForce)
	if err != nil {
		perf.EndWithError(ctx, err)
		return err
	}
	perf.End(ctx)

	report := buildReport{Kind: kind.String(), Artifacts: artifacts}
	for _, artifact := range artifacts {
		if artifact.Rebuilt {
			report.Rebuilt++
		}
	}
	for _, warning := range bundle.Compiler.Warnings().List() {
		report.Warnings = append(report.Warnings, warning.String())
	}

	return writeReport(cmd.OutOrStdout(), buildFlags.Format, report)
}

func writeReport(w io.Writer, format string, report buildReport) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	case "table", "":
		return writeTable(w, report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeTable(w io.Writer, report buildReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "FILE\tREBUILT\tMODIFIED\tSOURCES")
	for _, artifact := range report.Artifacts {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%s\n",
			artifact.FullPath(), artifact.Rebuilt, artifact.Time, strings.Join(artifact.Source, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d %s artifact(s), %d rebuilt\n", len(report.Artifacts), report.Kind, report.Rebuilt)
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
