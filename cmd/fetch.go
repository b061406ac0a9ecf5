package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/choropleth-cli/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and cache both sources, then print their local paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(); err != nil {
			return err
		}

		env, err := initSources(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		src, err := pipeline.New(cfg, env.Resolver).Resolve(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tabular:  %s\n", src.Tabular)
		fmt.Fprintf(out, "boundary: %s\n", src.Boundary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
