package entity

import "strings"

// Article is the generated long-form rewrite of one video.
// Title is the source video title, not the model's headline; VideoURL always comes from the Video.
type Article struct {
	Title       string
	ChannelName string
	VideoURL    string
	Body        string // Markdown
}

// NewArticle pairs a generated Markdown body with the video it was written from.
func NewArticle(v *Video, body string) *Article {
	return &Article{
		Title:       v.Title,
		ChannelName: v.ChannelName,
		VideoURL:    v.URL,
		Body:        body,
	}
}

// Validate checks that the article carries everything the assembler and mailer render.
func (a *Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := ValidateWatchURL(a.VideoURL); err != nil {
		return err
	}
	if strings.TrimSpace(a.Body) == "" {
		return &ValidationError{Field: "body", Message: "body is required"}
	}
	return nil
}
