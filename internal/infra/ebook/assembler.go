// Package ebook assembles generated articles into a single EPUB digest.
package ebook

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"time"

	epub "github.com/go-shiori/go-epub"
	"github.com/google/uuid"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/infra/markdown"
)

const (
	// Title is the e-book title metadata.
	Title = "YouTube Digest"

	// Author is the e-book author metadata.
	Author = "YouTube to Ebook"

	// Language is the e-book language metadata.
	Language = "en"
)

// ErrNoArticles is returned when Build is called with an empty list.
var ErrNoArticles = errors.New("no articles to assemble")

// AssemblyError describes a failed build. Index is the offending article, or -1.
type AssemblyError struct {
	Path  string
	Index int
	Err   error
}

func (e *AssemblyError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("assemble %s: article %d: %v", e.Path, e.Index, e.Err)
	}
	return fmt.Sprintf("assemble %s: %v", e.Path, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// Is makes every AssemblyError match entity.ErrAssembly.
func (e *AssemblyError) Is(target error) bool {
	return target == entity.ErrAssembly
}

// Assembler builds EPUB files. One chapter per article, in input order.
type Assembler struct {
	renderer *markdown.Renderer
}

// NewAssembler returns an Assembler using the shared Markdown renderer.
func NewAssembler() *Assembler {
	return &Assembler{renderer: markdown.NewRenderer()}
}

// Build writes articles to outputPath, replacing any existing file only once
// the new e-book is complete. On failure the previous file, if any, is left
// untouched.
func (a *Assembler) Build(ctx context.Context, articles []entity.Article, outputPath string) error {
	fail := func(index int, err error) error {
		return &AssemblyError{Path: outputPath, Index: index, Err: err}
	}

	if len(articles) == 0 {
		return fail(-1, ErrNoArticles)
	}

	book, err := epub.NewEpub(Title)
	if err != nil {
		return fail(-1, fmt.Errorf("create epub: %w", err))
	}
	book.SetAuthor(Author)
	book.SetLang(Language)
	book.SetIdentifier("urn:uuid:" + uuid.NewString())
	book.SetDescription(fmt.Sprintf("%d articles, %s", len(articles), time.Now().Format("January 2, 2006")))

	// go-epub reads the stylesheet from disk when the book is written.
	cssFile, err := os.CreateTemp("", "digest-style-*.css")
	if err != nil {
		return fail(-1, fmt.Errorf("create stylesheet: %w", err))
	}
	defer func() { _ = os.Remove(cssFile.Name()) }()
	if _, err := cssFile.WriteString(stylesheet); err != nil {
		_ = cssFile.Close()
		return fail(-1, fmt.Errorf("write stylesheet: %w", err))
	}
	if err := cssFile.Close(); err != nil {
		return fail(-1, fmt.Errorf("write stylesheet: %w", err))
	}

	cssPath, err := book.AddCSS(cssFile.Name(), "style.css")
	if err != nil {
		return fail(-1, fmt.Errorf("add stylesheet: %w", err))
	}

	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return fail(i, err)
		}

		body, err := a.chapterBody(article)
		if err != nil {
			return fail(i, err)
		}
		if _, err := book.AddSection(body, article.Title, fmt.Sprintf("article_%d.xhtml", i), cssPath); err != nil {
			return fail(i, fmt.Errorf("add section: %w", err))
		}
	}

	out, err := newAtomicFile(outputPath)
	if err != nil {
		return fail(-1, err)
	}
	if _, err := book.WriteTo(out); err != nil {
		out.abort()
		return fail(-1, fmt.Errorf("write epub: %w", err))
	}
	if err := out.commit(); err != nil {
		return fail(-1, err)
	}

	slog.InfoContext(ctx, "e-book assembled",
		slog.String("path", outputPath),
		slog.Int("chapters", len(articles)))
	return nil
}

// chapterBody renders one article as the XHTML body of its chapter.
func (a *Assembler) chapterBody(article entity.Article) (string, error) {
	rendered, err := a.renderer.Render(article.Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"<h1>%s</h1>\n<p class=\"byline\"><i>Channel: %s | <a href=\"%s\">Watch Video</a></i></p>\n%s",
		html.EscapeString(article.Title),
		html.EscapeString(article.ChannelName),
		html.EscapeString(article.VideoURL),
		rendered,
	), nil
}
