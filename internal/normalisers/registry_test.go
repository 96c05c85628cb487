package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

type upperNormaliser struct{}

func (upperNormaliser) Extensions() []string { return []string{".MD"} }

func (upperNormaliser) Normalise(_ context.Context, _ string, raw []byte) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Text: "custom:" + string(raw), Format: "custom"}, nil
}

func TestDefault_Dispatch(t *testing.T) {
	r := Default()
	ctx := context.Background()

	tests := []struct {
		path   string
		raw    string
		format string
		text   string
	}{
		{path: "/n/a.md", raw: "# Title\n\n**Hi**", format: "markdown", text: "Title\n\nHi"},
		{path: "/n/a.MARKDOWN", raw: "*Hi*", format: "markdown", text: "Hi"},
		{path: "/n/a.html", raw: "<p>Hi</p>", format: "html", text: "Hi"},
		{path: "/n/a.txt", raw: "**Hi**", format: "plaintext", text: "**Hi**"},
		{path: "/n/unknown.ext", raw: "Hi", format: "plaintext", text: "Hi"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := r.Normalise(ctx, tt.path, []byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.format, res.Format)
			assert.Equal(t, tt.text, res.Text)
		})
	}
}

func TestRegistry_Extensions(t *testing.T) {
	exts := Default().Extensions()
	for _, want := range []string{".md", ".html", ".docx", ".txt"} {
		assert.Contains(t, exts, want)
	}
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := Default()
	r.Register(upperNormaliser{})

	res, err := r.Normalise(context.Background(), "/n/a.md", []byte("x"))

	require.NoError(t, err)
	assert.Equal(t, "custom:x", res.Text)
}

func TestRegistry_NoFallback(t *testing.T) {
	r := NewRegistry(nil)

	res, err := r.Normalise(context.Background(), "/n/a.bin", []byte("raw"))

	require.NoError(t, err)
	assert.Equal(t, "raw", res.Text)
	assert.Empty(t, res.Format)
}
