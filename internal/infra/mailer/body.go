package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/infra/markdown"
)

// DateLayout formats the digest date in the subject and header.
const DateLayout = "January 2, 2006"

// Subject returns the message subject for a digest sent on date.
func Subject(date time.Time) string {
	return "Your YouTube Digest - " + date.Format(DateLayout)
}

var bodyTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
    body { font-family: Georgia, serif; font-size: 18px; max-width: 700px; margin: 0 auto; padding: 20px; background-color: #f9f9f9; color: #333; }
    .header { text-align: center; padding: 30px 0; border-bottom: 3px solid #333; margin-bottom: 30px; }
    .header h1 { margin: 0; font-size: 32px; letter-spacing: 2px; }
    .header p { color: #666; font-size: 18px; margin: 10px 0 0 0; }
    .article { background: white; padding: 30px; margin-bottom: 30px; border-radius: 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1); }
    .article-intro { background: #f8f8f8; padding: 15px 20px; border-left: 4px solid #666; margin-bottom: 25px; font-size: 16px; color: #555; line-height: 1.6; }
    .article-content { font-size: 18px; line-height: 1.9; }
    .article-content h1 { color: #222; font-size: 26px; margin-top: 25px; }
    .article-content h2 { color: #222; font-size: 22px; margin-top: 25px; }
    .watch-link { display: inline-block; margin-top: 20px; padding: 12px 24px; background: #ff0000; color: white !important; text-decoration: none; border-radius: 5px; font-size: 16px; }
    .footer { text-align: center; color: #999; font-size: 14px; padding: 20px; }
    .epub-note { text-align: center; background: #e8f4e8; padding: 15px; border-radius: 5px; margin-bottom: 30px; font-size: 16px; }
</style>
</head>
<body>
<div class="header">
    <h1>YOUR YOUTUBE DIGEST</h1>
    <p>{{.Date}}</p>
</div>
<div class="epub-note">EPUB ebook attached - open on your phone's ebook reader!</div>
{{range .Articles}}<div class="article">
    <div class="article-intro">
        <em>This article is based on the video "<strong>{{.Title}}</strong>" from the YouTube channel <strong>{{.ChannelName}}</strong>.</em>
    </div>
    <div class="article-content">{{.Content}}</div>
    <a href="{{.VideoURL}}" class="watch-link">Watch the original video</a>
</div>
{{end}}<div class="footer">Generated by YouTube Newsletter Bot</div>
</body>
</html>
`))

type bodyArticle struct {
	Title       string
	ChannelName string
	VideoURL    string
	Content     template.HTML
}

// RenderBody builds the HTML message body, one block per article in order.
// Article Markdown is rendered with the same renderer as the e-book chapters.
func RenderBody(articles []entity.Article, date time.Time) (string, error) {
	renderer := markdown.NewRenderer()

	items := make([]bodyArticle, 0, len(articles))
	for i, a := range articles {
		rendered, err := renderer.Render(a.Body)
		if err != nil {
			return "", fmt.Errorf("article %d: %w", i, err)
		}
		items = append(items, bodyArticle{
			Title:       a.Title,
			ChannelName: a.ChannelName,
			VideoURL:    a.VideoURL,
			// goldmark omits raw HTML, so the rendered fragment is trusted markup.
			Content: template.HTML(rendered),
		})
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		Date     string
		Articles []bodyArticle
	}{
		Date:     date.Format(DateLayout),
		Articles: items,
	})
	if err != nil {
		return "", fmt.Errorf("execute body template: %w", err)
	}
	return buf.String(), nil
}
