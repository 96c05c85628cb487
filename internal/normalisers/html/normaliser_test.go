package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensions(t *testing.T) {
	assert.ElementsMatch(t, []string{".html", ".htm", ".xhtml"}, New().Extensions())
}

func TestNormalise(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Acme &amp; Partners</title><style>body { color: red; }</style></head>
<body>
<!-- navigation -->
<h1>Leadership</h1>
<p>The CEO of Acme is <b>Alice Smith</b>.</p>
<script>track("view")</script>
<ul><li>Founded 1999</li><li>Offices: 3</li></ul>
<p>Caf&eacute; opens at&nbsp;9.<br/>Closed Sundays.</p>
</body>
</html>`

	res, err := New().Normalise(context.Background(), "/site/about.html", []byte(page))

	require.NoError(t, err)
	assert.Equal(t, "html", res.Format)
	assert.Equal(t, "Acme & Partners", res.Title)
	assert.Equal(t,
		"Leadership\nThe CEO of Acme is Alice Smith.\nFounded 1999\nOffices: 3\nCafé opens at 9.\nClosed Sundays.",
		res.Text)
	assert.NotContains(t, res.Text, "track")
	assert.NotContains(t, res.Text, "color")
	assert.NotContains(t, res.Text, "navigation")
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		want    string
	}{
		{name: "title tag", content: "<title> Home </title>", path: "/x.html", want: "Home"},
		{name: "empty title falls back", content: "<title></title>", path: "/team_page.html", want: "team page"},
		{name: "no title", content: "<p>hi</p>", path: "/q3-report.htm", want: "q3 report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle(tt.content, tt.path))
		})
	}
}

func TestNormalise_Empty(t *testing.T) {
	res, err := New().Normalise(context.Background(), "/empty.html", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}
