package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the download cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManifest(cmd.Context(), cfg.Fetch)
		if err != nil {
			return err
		}
		defer m.Close() //nolint:errcheck

		entries, err := m.List(cmd.Context())
		if err != nil {
			return err
		}
		return writeCacheList(cmd.OutOrStdout(), entries)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [url...]",
	Short: "Remove cached downloads (all of them when no URL is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManifest(cmd.Context(), cfg.Fetch)
		if err != nil {
			return err
		}
		defer m.Close() //nolint:errcheck

		n, err := clearCache(cmd.Context(), m, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached downloads\n", n)
		return nil
	},
}

func writeCacheList(w io.Writer, entries []cache.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "cache is empty")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tSIZE\tETAG\tFETCHED\tPATH")
	for _, e := range entries {
		etag := e.ETag
		if etag == "" {
			etag = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", e.URL, e.Size, etag, e.FetchedAt.UTC().Format(time.RFC3339), e.Path)
	}
	return tw.Flush()
}

// clearCache removes the given URLs (or every entry) from the manifest and
// deletes their files. Missing files are ignored.
func clearCache(ctx context.Context, m *cache.Manifest, urls []string) (int, error) {
	var entries []cache.Entry
	if len(urls) == 0 {
		all, err := m.List(ctx)
		if err != nil {
			return 0, err
		}
		entries = all
	} else {
		for _, u := range urls {
			e, err := m.Get(ctx, u)
			if err != nil {
				return 0, err
			}
			if e == nil {
				zap.L().Warn("not in cache", zap.String("url", u))
				continue
			}
			entries = append(entries, *e)
		}
	}

	for i, e := range entries {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return i, eris.Wrapf(err, "remove %s", e.Path)
		}
		if err := m.Delete(ctx, e.URL); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
