package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/cache"
)

// Manifest records cached downloads. *cache.Manifest satisfies it.
type Manifest interface {
	Get(ctx context.Context, url string) (*cache.Entry, error)
	Put(ctx context.Context, e cache.Entry) error
}

// Resolver turns a source location (local path, file://, http(s):// or
// ftp:// URL) into a readable local file, downloading into CacheDir when
// needed.
type Resolver struct {
	CacheDir string
	HTTP     ConditionalFetcher
	FTP      Fetcher
	Manifest Manifest // optional; without it every remote resolve downloads
}

// NewResolver creates a Resolver with the given fetchers and manifest.
func NewResolver(cacheDir string, httpF ConditionalFetcher, ftpF Fetcher, manifest Manifest) *Resolver {
	return &Resolver{CacheDir: cacheDir, HTTP: httpF, FTP: ftpF, Manifest: manifest}
}

// Resolve returns a local path for location.
func (r *Resolver) Resolve(ctx context.Context, location string) (string, error) {
	if !strings.Contains(location, "://") {
		return localPath(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse location %q", location)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return localPath(u.Path)
	case "http", "https":
		return r.resolveHTTP(ctx, location)
	case "ftp":
		return r.resolveFTP(ctx, location)
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q in %s", u.Scheme, location)
	}
}

// ResolveFile resolves location and returns a file with one of exts. ZIP
// archives are extracted into a fresh directory next to the cached archive
// and searched; a directory is searched in place.
func (r *Resolver) ResolveFile(ctx context.Context, location string, exts ...string) (string, error) {
	p, err := r.Resolve(ctx, location)
	if err != nil {
		return "", err
	}
	if hasExt(p, exts) {
		return p, nil
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: stat %s", p)
	}
	if info.IsDir() {
		return FindFileByExt(p, exts...)
	}

	if !hasExt(p, []string{".zip"}) {
		return "", eris.Errorf("fetcher: %s is not a %s file or zip archive", p, strings.Join(exts, "/"))
	}

	dir := strings.TrimSuffix(p, filepath.Ext(p)) + "_unzipped"
	if err := os.RemoveAll(dir); err != nil {
		return "", eris.Wrap(err, "fetcher: clear extract directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create extract directory")
	}
	files, err := ExtractZIP(p, dir)
	if err != nil {
		return "", err
	}
	zap.L().Debug("extracted archive",
		zap.String("archive", p),
		zap.String("dir", dir),
		zap.Int("files", len(files)),
	)
	return FindFileByExt(dir, exts...)
}

func localPath(p string) (string, error) {
	if _, err := os.Stat(p); err != nil {
		return "", eris.Wrapf(err, "fetcher: source %s", p)
	}
	return p, nil
}

func (r *Resolver) resolveHTTP(ctx context.Context, location string) (string, error) {
	if r.HTTP == nil {
		return "", eris.New("fetcher: no http fetcher configured")
	}

	cached := r.cached(ctx, location)
	etag := ""
	if cached != nil {
		etag = cached.ETag
	}

	body, newETag, changed, err := r.HTTP.DownloadIfChanged(ctx, location, etag)
	if err != nil {
		if cached != nil {
			zap.L().Warn("download failed, using cached copy",
				zap.String("url", location),
				zap.String("path", cached.Path),
				zap.Error(err),
			)
			return cached.Path, nil
		}
		return "", eris.Wrapf(err, "fetcher: download %s", location)
	}
	if !changed {
		if cached == nil {
			return "", eris.Errorf("fetcher: %s reported unchanged with no cached copy", location)
		}
		zap.L().Info("source unchanged, using cache",
			zap.String("url", location),
			zap.String("etag", etag),
		)
		return cached.Path, nil
	}
	defer body.Close() //nolint:errcheck

	dest, err := r.cachePath(location)
	if err != nil {
		return "", err
	}
	n, err := writeFile(dest, body)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: save %s", location)
	}

	r.record(ctx, cache.Entry{URL: location, Path: dest, ETag: newETag, Size: n})
	zap.L().Info("downloaded source",
		zap.String("url", location),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}

func (r *Resolver) resolveFTP(ctx context.Context, location string) (string, error) {
	if r.FTP == nil {
		return "", eris.New("fetcher: no ftp fetcher configured")
	}
	if cached := r.cached(ctx, location); cached != nil {
		return cached.Path, nil
	}

	dest, err := r.cachePath(location)
	if err != nil {
		return "", err
	}
	n, err := r.FTP.DownloadToFile(ctx, location, dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: download %s", location)
	}

	r.record(ctx, cache.Entry{URL: location, Path: dest, Size: n})
	zap.L().Info("downloaded source",
		zap.String("url", location),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}

// cached returns the manifest entry for location if its file still exists.
func (r *Resolver) cached(ctx context.Context, location string) *cache.Entry {
	if r.Manifest == nil {
		return nil
	}
	e, err := r.Manifest.Get(ctx, location)
	if err != nil {
		zap.L().Warn("cache lookup failed", zap.String("url", location), zap.Error(err))
		return nil
	}
	if e == nil {
		return nil
	}
	if _, err := os.Stat(e.Path); err != nil {
		return nil
	}
	return e
}

func (r *Resolver) record(ctx context.Context, e cache.Entry) {
	if r.Manifest == nil {
		return
	}
	if err := r.Manifest.Put(ctx, e); err != nil {
		zap.L().Warn("cache record failed", zap.String("url", e.URL), zap.Error(err))
	}
}

// cachePath maps a URL to a stable file name inside CacheDir.
func (r *Resolver) cachePath(location string) (string, error) {
	if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create cache directory")
	}
	return filepath.Join(r.CacheDir, CacheFileName(location)), nil
}

// CacheFileName is the first 16 hex digits of the URL's SHA-256 followed by
// the URL's base name, so the extension survives.
func CacheFileName(location string) string {
	sum := sha256.Sum256([]byte(location))
	base := "download"
	if u, err := url.Parse(location); err == nil {
		if b := path.Base(u.Path); b != "." && b != "/" && b != "" {
			base = b
		}
	}
	return hex.EncodeToString(sum[:])[:16] + "-" + base
}
