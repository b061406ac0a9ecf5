package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/choropleth-cli/internal/db"
	"github.com/sells-group/choropleth-cli/internal/postgis"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Build the map and load the classified features into PostGIS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pg := cfg.PostGIS
		if pg.DatabaseURL == "" {
			return eris.New("postgis.database_url is required (or set CHOROPLETH_POSTGIS_DATABASE_URL)")
		}

		res, err := runPipeline(ctx, cfg)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, pg.DatabaseURL, &db.PoolConfig{MaxConns: pg.MaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgis.EnsureTable(ctx, pool, pg.Schema, pg.Table); err != nil {
			return err
		}
		n, err := postgis.Publish(ctx, pool, pg.Schema, pg.Table, res.Features, res.Palette, postgis.Options{
			BuildID: res.BuildID,
			Upsert:  pg.Upsert,
		})
		if err != nil {
			return err
		}
		total, err := postgis.Count(ctx, pool, pg.Schema, pg.Table)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "published %d features to %s (%d rows total)\n",
			n, db.QualifiedName(pg.Schema, pg.Table), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
