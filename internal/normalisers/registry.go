package normalisers

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/normalisers/docx"
	"github.com/custodia-labs/ragkit/internal/normalisers/html"
	"github.com/custodia-labs/ragkit/internal/normalisers/markdown"
	"github.com/custodia-labs/ragkit/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.Normaliser = (*Registry)(nil)

// Registry dispatches to a normaliser by file extension.
type Registry struct {
	byExt    map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates a registry that uses fallback for unknown extensions.
func NewRegistry(fallback driven.Normaliser) *Registry {
	return &Registry{byExt: make(map[string]driven.Normaliser), fallback: fallback}
}

// Default returns a registry with every built-in format, falling back to
// plain text.
func Default() *Registry {
	r := NewRegistry(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	return r
}

// Register adds n for each of its extensions. Later registrations win.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// For returns the normaliser for path, or the fallback.
func (r *Registry) For(path string) driven.Normaliser {
	if n, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return n
	}
	return r.fallback
}

// Normalise converts raw with the normaliser registered for path.
func (r *Registry) Normalise(ctx context.Context, path string, raw []byte) (*driven.NormaliseResult, error) {
	n := r.For(path)
	if n == nil {
		return &driven.NormaliseResult{Text: string(raw)}, nil
	}
	return n.Normalise(ctx, path, raw)
}
