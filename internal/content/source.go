package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotExist is wrapped by sources whose document does not exist yet.
var ErrNotExist = errors.New("content document does not exist")

// Source yields the raw bytes of one content document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, s.Path)
		}
		return nil, err
	}
	return f, nil
}

func (s FileSource) String() string { return s.Path }

// HTTPSource fetches a document over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotExist, s.URL)
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", s.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s HTTPSource) String() string { return s.URL }

// Load fetches and decodes one document. Every call reads the source again.
func Load(ctx context.Context, src Source, kind Kind) ([]Item, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer rc.Close()

	doc, err := Decode(rc, kind)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// Library resolves the document source for each kind.
type Library struct {
	sources map[Kind]Source
}

// NewLibrary builds a library from per-kind locations. A location starting
// with http:// or https:// is fetched over HTTP; anything else is a file
// path, relative paths being resolved against dataDir.
func NewLibrary(dataDir string, locations map[Kind]string, client *http.Client) *Library {
	l := &Library{sources: make(map[Kind]Source, len(Kinds))}
	for _, k := range Kinds {
		loc := locations[k]
		switch {
		case loc == "":
			l.sources[k] = FileSource{Path: filepath.Join(dataDir, k.FileName())}
		case isHTTP(loc):
			l.sources[k] = HTTPSource{URL: loc, Client: client}
		case filepath.IsAbs(loc):
			l.sources[k] = FileSource{Path: loc}
		default:
			l.sources[k] = FileSource{Path: filepath.Join(dataDir, loc)}
		}
	}
	return l
}

// Source returns the configured source for kind.
func (l *Library) Source(kind Kind) Source {
	return l.sources[kind]
}

// Load reads kind's document from its source.
func (l *Library) Load(ctx context.Context, kind Kind) ([]Item, error) {
	src, ok := l.sources[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no source for %q", ErrFetch, kind)
	}
	return Load(ctx, src, kind)
}

func isHTTP(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}
