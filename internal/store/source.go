package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/time/rate"
)

// Source serves the raw dataset files: manifest.json, places.json and one
// <id>.json per entity.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns the names of the entity files the source holds.
	List(ctx context.Context) ([]string, error)
	String() string
}

// FSSource reads the dataset from a file system (the embedded dataset or
// os.DirFS of a data directory).
type FSSource struct {
	fsys  fs.FS
	label string
}

// NewFSSource serves files from fsys. label names the source in logs.
func NewFSSource(fsys fs.FS, label string) *FSSource {
	return &FSSource{fsys: fsys, label: label}
}

func (s *FSSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

func (s *FSSource) List(_ context.Context) ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.label, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isEntityFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *FSSource) String() string { return s.label }

// HTTPSource fetches the dataset from a static file host, one request per
// file, paced by a token bucket.
type HTTPSource struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource serves files below baseURL, allowing rps requests per
// second. A non-positive rps disables pacing. A nil client uses
// http.DefaultClient.
func NewHTTPSource(baseURL string, client *http.Client, rps float64) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPSource{base: u, client: client, limiter: rate.NewLimiter(limit, 1)}, nil
}

// Limit returns the request rate the source is paced at.
func (s *HTTPSource) Limit() rate.Limit { return s.limiter.Limit() }

func (s *HTTPSource) get(ctx context.Context, name string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := *s.base
	u.Path = path.Join(s.base.Path, name)
	if name == "" {
		u.Path = s.base.Path
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", name, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", name, resp.StatusCode)
	}
	return resp, nil
}

func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// List reads the host's HTML directory index.
func (s *HTTPSource) List(ctx context.Context) ([]string, error) {
	resp, err := s.get(ctx, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return ParseIndex(resp.Body)
}

func (s *HTTPSource) String() string { return s.base.String() }

func isEntityFile(name string) bool {
	return strings.HasSuffix(name, ".json") && name != ManifestFile && name != PlacesFile
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
