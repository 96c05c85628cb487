// Package plaintext passes text files through unchanged.
package plaintext

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text and source files.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the suffixes this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{
		".txt", ".text", ".log", ".csv",
		".go", ".py", ".rs", ".java", ".c", ".h", ".cpp", ".rb", ".sh", ".sql",
		".js", ".jsx", ".ts", ".tsx", ".css",
		".json", ".yaml", ".yml", ".toml", ".xml",
	}
}

// Normalise returns raw as text. Binary content is rejected.
func (n *Normaliser) Normalise(_ context.Context, path string, raw []byte) (*driven.NormaliseResult, error) {
	if !utf8.Valid(raw) {
		return nil, domain.ErrInvalidInput
	}
	return &driven.NormaliseResult{
		Text:   string(raw),
		Title:  titleFromPath(path),
		Format: "plaintext",
	}, nil
}

// titleFromPath turns "meeting_notes-2024.txt" into "meeting notes 2024".
func titleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
