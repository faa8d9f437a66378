package mailer_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/infra/mailer"
)

type fakeSender struct {
	msgs []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

var digestDate = time.Date(2026, time.October, 14, 7, 0, 0, 0, time.UTC)

func articles() []entity.Article {
	return []entity.Article{
		{Title: "Why <Rust> Won", ChannelName: "Theo - t3.gg", VideoURL: "https://www.youtube.com/watch?v=a1",
			Body: "# The Quiet Victory\n\nRust did **not** win by accident."},
		{Title: "Deep Work", ChannelName: "Ali Abdaal", VideoURL: "https://www.youtube.com/watch?v=b2",
			Body: "Focus, then *rest*."},
	}
}

func writeEbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsletter.epub")
	require.NoError(t, os.WriteFile(path, []byte("PK-fake-epub"), 0o644))
	return path
}

func raw(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Your YouTube Digest - October 14, 2026", mailer.Subject(digestDate))
}

func TestMailer_Send(t *testing.T) {
	sender := &fakeSender{}
	m := mailer.NewWithSender(sender, "digest@example.com", mailer.WithClock(func() time.Time { return digestDate }))
	path := writeEbook(t)

	require.NoError(t, m.Send(context.Background(), "reader@example.com", articles(), path))
	require.Len(t, sender.msgs, 1)

	out := raw(t, sender.msgs[0])
	assert.Contains(t, out, "Subject: Your YouTube Digest - October 14, 2026")
	assert.Contains(t, out, "digest@example.com")
	assert.Contains(t, out, "reader@example.com")
	assert.Contains(t, out, "multipart/mixed")
	assert.Contains(t, out, "text/html")
	assert.Contains(t, out, mailer.EPUBContentType)
	assert.Contains(t, out, `filename="newsletter.epub"`)
	assert.Contains(t, out, "UEstZmFrZS1lcHVi", "attachment is the file content, base64 encoded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK-fake-epub", string(data), "attachment is left in place")
}

func TestMailer_Send_AttachmentMissing(t *testing.T) {
	sender := &fakeSender{}
	m := mailer.NewWithSender(sender, "digest@example.com")

	err := m.Send(context.Background(), "reader@example.com", articles(), filepath.Join(t.TempDir(), "missing.epub"))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrAttachmentRead)
	assert.NotErrorIs(t, err, entity.ErrDelivery)
	assert.Empty(t, sender.msgs, "nothing is sent without the attachment")

	var mErr *mailer.Error
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "read attachment", mErr.Op)
}

func TestMailer_Send_TransportFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("535 5.7.8 Username and Password not accepted")}
	m := mailer.NewWithSender(sender, "digest@example.com")

	err := m.Send(context.Background(), "reader@example.com", articles(), writeEbook(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrDelivery)
	assert.Contains(t, err.Error(), "535")
}

func TestMailer_Send_InvalidRecipient(t *testing.T) {
	sender := &fakeSender{}
	m := mailer.NewWithSender(sender, "digest@example.com")

	err := m.Send(context.Background(), "not an address", articles(), writeEbook(t))
	assert.ErrorIs(t, err, entity.ErrDelivery)
	assert.Empty(t, sender.msgs)
}

func TestNew_Defaults(t *testing.T) {
	m, err := mailer.New(mailer.Config{Username: "me@gmail.com", Password: "app-password"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestRenderBody(t *testing.T) {
	body, err := mailer.RenderBody(articles(), digestDate)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "YOUR YOUTUBE DIGEST", doc.Find(".header h1").Text())
	assert.Equal(t, "October 14, 2026", doc.Find(".header p").Text())
	assert.Contains(t, doc.Find(".epub-note").Text(), "EPUB ebook attached")
	assert.Equal(t, "Generated by YouTube Newsletter Bot", doc.Find(".footer").Text())

	blocks := doc.Find(".article")
	require.Equal(t, 2, blocks.Length())

	first := blocks.Eq(0)
	assert.Equal(t,
		`This article is based on the video "Why <Rust> Won" from the YouTube channel Theo - t3.gg.`,
		strings.TrimSpace(first.Find(".article-intro").Text()))
	assert.Equal(t, "The Quiet Victory", first.Find(".article-content h1").Text())
	assert.Equal(t, "not", first.Find(".article-content strong").Text())

	link := first.Find("a.watch-link")
	assert.Equal(t, "Watch the original video", link.Text())
	assert.Equal(t, "https://www.youtube.com/watch?v=a1", link.AttrOr("href", ""))

	assert.Equal(t, "https://www.youtube.com/watch?v=b2", blocks.Eq(1).Find("a.watch-link").AttrOr("href", ""))
	assert.NotContains(t, body, "<Rust>", "titles are escaped")
}
