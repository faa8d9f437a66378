// Package markdown converts generated articles to XHTML.
// Both the e-book chapters and the e-mail body go through the same renderer,
// so an article reads the same in either place.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts CommonMark plus GFM tables and strikethrough into XHTML.
// Raw HTML in the source is omitted, not passed through.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a Renderer. It is safe for concurrent use.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

// Render converts source to an XHTML fragment.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

var defaultRenderer = NewRenderer()

// Render converts source with the package default renderer.
func Render(source string) (string, error) {
	return defaultRenderer.Render(source)
}
