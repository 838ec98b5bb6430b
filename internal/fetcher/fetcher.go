package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Materialize makes source available as a local file and returns its path.
// http(s) and ftp URLs are downloaded into destDir; anything else is treated
// as a local path and returned unchanged after an existence check.
func Materialize(ctx context.Context, source, destDir string) (string, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" {
		if _, statErr := os.Stat(source); statErr != nil {
			return "", eris.Wrapf(statErr, "fetcher: source %s", source)
		}
		return source, nil
	}

	var f Fetcher
	switch u.Scheme {
	case "http", "https":
		f = NewHTTPFetcher(HTTPOptions{})
	case "ftp":
		f = NewFTPFetcher(FTPOptions{})
	case "file":
		if _, statErr := os.Stat(u.Path); statErr != nil {
			return "", eris.Wrapf(statErr, "fetcher: source %s", source)
		}
		return u.Path, nil
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q in %s", u.Scheme, source)
	}

	name := filepath.Base(u.Path)
	if name == "." || name == "/" {
		name = "download"
	}
	dest := filepath.Join(destDir, name)
	if _, err := f.DownloadToFile(ctx, source, dest); err != nil {
		return "", err
	}
	return dest, nil
}
