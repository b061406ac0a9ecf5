package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/pipeline"
	"github.com/sells-group/choropleth-cli/internal/render"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the map and write index.html, GeoJSON and legend files",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		dir := buildOut
		if dir == "" {
			dir = cfg.Output.Dir
		}
		if err := render.WriteDir(dir, res.Map); err != nil {
			return err
		}

		zap.L().Info("map written", zap.String("dir", dir), zap.String("build_id", res.BuildID))
		printSummary(cmd.OutOrStdout(), res)
		fmt.Fprintf(cmd.OutOrStdout(), "open %s\n", filepath.Join(dir, render.IndexFile))
		return nil
	},
}

// printSummary writes the join and classification counts of a run.
func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "build %s\n", res.BuildID)
	fmt.Fprintf(w, "features: %d (matched %d, unmatched %d, orphan rows %d, duplicate codes %d)\n",
		len(res.Features), res.Join.Matched, res.Join.Unmatched, res.Join.Orphans, res.Join.Duplicates)
	fmt.Fprintf(w, "bins: %d (%s), no data: %d\n", res.Classifier.Bins(), res.Classifier.Mode, res.NoData)
}

func init() {
	buildCmd.Flags().StringVar(&buildOut, "out", "", "output directory (default from config)")
	rootCmd.AddCommand(buildCmd)
}
