package static

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrDocumentNotFound is returned by MapLoader for unknown URLs.
var ErrDocumentNotFound = errors.New("document not found")

// Loader retrieves the raw HTML for a URL.
type Loader interface {
	Load(ctx context.Context, rawURL string) ([]byte, error)
}

// MapLoader serves documents from memory. It records every requested URL so
// callers can assert navigation order.
type MapLoader struct {
	mu      sync.Mutex
	docs    map[string]string
	visited []string
}

// NewMapLoader creates a loader for the given URL -> HTML map.
func NewMapLoader(docs map[string]string) *MapLoader {
	copied := make(map[string]string, len(docs))
	for k, v := range docs {
		copied[k] = v
	}
	return &MapLoader{docs: copied}
}

// Set adds or replaces a document.
func (l *MapLoader) Set(rawURL, html string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[rawURL] = html
}

// Load returns the stored document for rawURL.
func (l *MapLoader) Load(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load canceled: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visited = append(l.visited, rawURL)
	html, ok := l.docs[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, rawURL)
	}
	return []byte(html), nil
}

// Visited returns a copy of the URLs requested so far.
func (l *MapLoader) Visited() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.visited...)
}
