package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/assetloader/internal/assets"
	"github.com/conneroisu/assetloader/internal/tags"
	"github.com/conneroisu/assetloader/internal/types"
)

var tagCmd = &cobra.Command{
	Use:     "tag [files...]",
	Aliases: []string{"t"},
	Short:   "Print the loader markup for a bundle or a single asset",
	Long: `Build the bundle when stale and print one tag per compiled artifact.
With --url a tag is printed for a single local path or external URL instead;
local paths get an integrity attribute, external URLs a weekly ?v= version.

Examples:
  assetloader tag --dir public --kind css css/app.css
  assetloader tag --dir public --kind js js/app.js --dynamic=false
  assetloader tag --url https://cdn.example.com/lib.js --kind js
  assetloader tag --url /fonts/inter.woff2 --kind preload --as font`,
	RunE: runTag,
}

var (
	tagFlags   *StandardFlags
	tagDynamic bool
	tagURL     string
	tagAs      string
	tagMedia   string
)

func init() {
	rootCmd.AddCommand(tagCmd)

	tagFlags = AddStandardFlags(tagCmd, "bundle")
	tagCmd.Flags().BoolVar(&tagDynamic, "dynamic", true, "Inject scripts through the inline loader (default tags.dynamic_loader)")
	tagCmd.Flags().StringVar(&tagURL, "url", "", "Render a tag for this path or URL instead of a bundle")
	tagCmd.Flags().StringVar(&tagAs, "as", "script", "Preload destination for --kind preload")
	tagCmd.Flags().StringVar(&tagMedia, "media", "", "Stylesheet media (default tags.media)")
}

func runTag(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	media := a.cfg.Tags.Media
	if tagMedia != "" {
		media = tagMedia
	}

	if tagURL != "" {
		markup, err := singleTag(cmd, a, media)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), markup)
		return nil
	}

	if err := tagFlags.ValidateFlags(); err != nil {
		return err
	}
	kind, _ := tagFlags.AssetKind()

	factory := a.factory(func(s *assets.Settings) {
		if cmd.Flags().Changed("dynamic") {
			s.DynamicLoader = tagDynamic
		}
		s.Media = media
	})

	var markup string
	dir := tagFlags.AssetDir(a.cfg.Assets.Root)
	switch kind {
	case types.AssetStylesheet:
		markup, err = factory.CSS(ctx, dir, args)
	default:
		markup, err = factory.JS(ctx, dir, args)
	}
	if err != nil {
		return err
	}

	if markup != "" {
		fmt.Fprintln(cmd.OutOrStdout(), markup)
	}
	return nil
}

func singleTag(cmd *cobra.Command, a *app, media string) (string, error) {
	ctx := cmd.Context()

	switch tagFlags.Kind {
	case "preload":
		return a.builder.Preload(tagURL, tagAs), nil
	case "css", "stylesheet":
		return a.builder.Stylesheet(ctx, tagURL, tags.StylesheetOptions{Media: media}), nil
	case "js", "javascript":
		dynamic := a.cfg.Tags.DynamicLoader
		if cmd.Flags().Changed("dynamic") {
			dynamic = tagDynamic
		}
		if dynamic {
			return a.builder.DynamicScript(ctx, tagURL, a.cfg.Tags.LoaderID), nil
		}
		return a.builder.Script(ctx, tagURL), nil
	default:
		return "", fmt.Errorf("invalid kind %q, must be js, css or preload", tagFlags.Kind)
	}
}
