package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedScheme = errors.New("resource: unsupported scheme")
	ErrFetch             = errors.New("resource: could not fetch")
)

// The Resource type wraps a streamable file or remote resource.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Return the base name of this resource. For remote resources this is the
// last element of the URL path.
func (r *Resource) Name() string {
	if r.IsRemote() {
		return filepath.Base(r.url.Path)
	}
	return filepath.Base(r.Path())
}

// Returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource data stream. If relTo is specified and pathToResource
// does not define a scheme, then the path to the new resource is generated
// by joining the directory of relTo and pathToResource. relTo may be either
// a local path or an http/https URL.
//
// Remote resources are fetched with a request bound to ctx. The caller
// must close the returned resource.
func NewResource(ctx context.Context, pathToResource, relTo string) (*Resource, error) {
	// Replace backslashes with forward slashes and try parsing as a URL
	url, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, err
	}

	// If this is a relative local path, resolve it against relTo
	if url.Scheme == "" && relTo != "" && !filepath.IsAbs(url.Path) {
		path := url.Path
		if url, err = url.Parse(relTo); err != nil {
			return nil, err
		}
		prefix := url.Path
		if url.Scheme == "" {
			prefix, err = filepath.Abs(relTo)
			if err != nil {
				return nil, fmt.Errorf("resource: could not detect abs path for %s: %w", relTo, err)
			}
		}
		url.Path = filepath.Dir(prefix) + "/" + path
	}

	var reader io.ReadCloser
	switch url.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(url.Path))
		if err != nil {
			return nil, err
		}
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w '%s': %w", ErrFetch, url.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w '%s': status %d", ErrFetch, url.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedScheme, url.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        url,
	}, nil
}
