package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/choropleth-cli/internal/cache"
	"github.com/sells-group/choropleth-cli/internal/config"
	"github.com/sells-group/choropleth-cli/internal/db"
	"github.com/sells-group/choropleth-cli/internal/fetcher"
	"github.com/sells-group/choropleth-cli/internal/pipeline"
	"github.com/sells-group/choropleth-cli/internal/postgis"
)

// manifestFile is the download manifest inside the cache directory.
const manifestFile = "manifest.db"

// sourceEnv holds the resolver and the manifest it records downloads in.
type sourceEnv struct {
	Resolver *fetcher.Resolver
	Manifest *cache.Manifest
}

// Close releases the manifest database.
func (e *sourceEnv) Close() {
	if e.Manifest != nil {
		e.Manifest.Close() //nolint:errcheck
	}
}

// openManifest creates the cache directory and opens its manifest.
func openManifest(ctx context.Context, fc config.FetchConfig) (*cache.Manifest, error) {
	if err := os.MkdirAll(fc.CacheDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create cache dir")
	}
	return cache.Open(ctx, filepath.Join(fc.CacheDir, manifestFile))
}

// initSources builds the HTTP/FTP fetchers and a caching resolver from cfg.
func initSources(ctx context.Context, c *config.Config) (*sourceEnv, error) {
	manifest, err := openManifest(ctx, c.Fetch)
	if err != nil {
		return nil, err
	}

	httpF := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   c.Fetch.UserAgent,
		Timeout:     c.Fetch.Timeout,
		MaxRetries:  c.Fetch.MaxRetries,
		RatePerHost: rate.Limit(c.Fetch.RatePerHost),
	})
	ftpF := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: c.Fetch.Timeout})

	return &sourceEnv{
		Resolver: fetcher.NewResolver(c.Fetch.CacheDir, httpF, ftpF, manifest),
		Manifest: manifest,
	}, nil
}

// runPipeline resolves both sources and builds the map. With
// postgis.reproject set, projected boundaries are transformed in PostGIS.
func runPipeline(ctx context.Context, c *config.Config) (*pipeline.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	env, err := initSources(ctx, c)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	var opts []pipeline.Option
	if c.PostGIS.Reproject {
		pool, err := db.Connect(ctx, c.PostGIS.DatabaseURL, &db.PoolConfig{MaxConns: c.PostGIS.MaxConns})
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		opts = append(opts, pipeline.WithReprojector(postgis.NewReprojector(pool)))
	}

	return pipeline.New(c, env.Resolver, opts...).Run(ctx)
}
