package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/resilience/circuitbreaker"
	"ytdigest/internal/usecase/resolve"
)

// DefaultSiteURL is the site the channel page and uploads feed are read from.
const DefaultSiteURL = "https://www.youtube.com"

const (
	userAgent       = "Mozilla/5.0 (compatible; ytdigest/1.0)"
	maxChannelPage  = 8 << 20
	channelIDPrefix = "UC"
)

var channelIDPattern = regexp.MustCompile(`/channel/(UC[\w-]{22})`)

// Feed implements resolve.Catalog without an API key. The channel page yields
// the channel ID; the uploads feed carries the newest 15 uploads.
type Feed struct {
	client         *http.Client
	siteURL        string
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewFeed creates a feed catalog. Empty siteURL means DefaultSiteURL.
func NewFeed(client *http.Client, siteURL string) *Feed {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}

	cfg := circuitbreaker.ChannelFeedConfig()
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, entity.ErrChannelNotFound)
	}
	return &Feed{
		client:         client,
		siteURL:        strings.TrimRight(siteURL, "/"),
		circuitBreaker: circuitbreaker.New(cfg),
	}
}

// UploadsCollection reads the channel page of handle and returns its channel ID.
func (f *Feed) UploadsCollection(ctx context.Context, handle string) (resolve.Collection, error) {
	return circuitbreaker.Do(f.circuitBreaker, func() (resolve.Collection, error) {
		return f.lookupChannel(ctx, handle)
	})
}

func (f *Feed) lookupChannel(ctx context.Context, handle string) (resolve.Collection, error) {
	pageURL := f.siteURL + "/@" + url.PathEscape(handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return resolve.Collection{}, fmt.Errorf("build channel page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(req)
	if err != nil {
		return resolve.Collection{}, fmt.Errorf("fetch channel page %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return resolve.Collection{}, fmt.Errorf("handle %s: %w", handle, entity.ErrChannelNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resolve.Collection{}, fmt.Errorf("fetch channel page %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxChannelPage))
	if err != nil {
		return resolve.Collection{}, fmt.Errorf("parse channel page %s: %w", pageURL, err)
	}

	id := channelIDFromPage(doc)
	if id == "" {
		return resolve.Collection{}, fmt.Errorf("handle %s: no channel id on page: %w", handle, entity.ErrChannelNotFound)
	}

	name := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if name == "" {
		name = strings.TrimSpace(doc.Find(`meta[itemprop="name"]`).AttrOr("content", ""))
	}

	return resolve.Collection{ID: id, ChannelName: name}, nil
}

// channelIDFromPage checks the identifier meta tag, then the canonical link.
func channelIDFromPage(doc *goquery.Document) string {
	for _, sel := range []string{`meta[itemprop="identifier"]`, `meta[itemprop="channelId"]`} {
		if id := strings.TrimSpace(doc.Find(sel).AttrOr("content", "")); strings.HasPrefix(id, channelIDPrefix) {
			return id
		}
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		if m := channelIDPattern.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

// RecentUploads parses the uploads feed of channelID.
func (f *Feed) RecentUploads(ctx context.Context, channelID string, max int) ([]resolve.Upload, error) {
	return circuitbreaker.Do(f.circuitBreaker, func() ([]resolve.Upload, error) {
		return f.parseFeed(ctx, channelID, max)
	})
}

func (f *Feed) parseFeed(ctx context.Context, channelID string, max int) ([]resolve.Upload, error) {
	feedURL := f.siteURL + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)

	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("uploads feed %s: %w", channelID, entity.ErrChannelNotFound)
		}
		return nil, fmt.Errorf("parse uploads feed %s: %w", channelID, err)
	}

	uploads := make([]resolve.Upload, 0, len(feed.Items))
	for _, it := range feed.Items {
		id := feedVideoID(it)
		if id == "" {
			slog.DebugContext(ctx, "feed entry without video id",
				slog.String("channel_id", channelID),
				slog.String("title", it.Title))
			continue
		}

		// チャンネル名はエントリの author、なければフィードのタイトル
		channelName := feed.Title
		if it.Author != nil && it.Author.Name != "" {
			channelName = it.Author.Name
		}

		uploads = append(uploads, resolve.Upload{
			VideoID:     id,
			Title:       it.Title,
			Description: feedDescription(it),
			ChannelName: channelName,
		})
		if max > 0 && len(uploads) == max {
			break
		}
	}
	return uploads, nil
}

// feedVideoID reads yt:videoId, falling back to the v parameter of the entry link.
func feedVideoID(it *gofeed.Item) string {
	if vals := it.Extensions["yt"]["videoId"]; len(vals) > 0 && vals[0].Value != "" {
		return vals[0].Value
	}
	if u, err := url.Parse(it.Link); err == nil {
		return u.Query().Get("v")
	}
	return ""
}

// feedDescription reads media:group/media:description.
func feedDescription(it *gofeed.Item) string {
	groups := it.Extensions["media"]["group"]
	if len(groups) == 0 {
		return it.Description
	}
	if desc := groups[0].Children["description"]; len(desc) > 0 {
		return desc[0].Value
	}
	return it.Description
}
