// Package catalog implements channel lookup and uploads listing for the resolver.
//
// Two sources are available: the YouTube Data API v3 (API key required) and the
// public channel page plus its uploads feed (no key). Both return the newest
// uploads first.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/resilience/circuitbreaker"
	"ytdigest/internal/usecase/resolve"
)

// DefaultTimeout bounds every catalog request.
const DefaultTimeout = 10 * time.Second

// YouTubeAPI implements resolve.Catalog on top of the Data API.
type YouTubeAPI struct {
	service        *youtube.Service
	circuitBreaker *circuitbreaker.CircuitBreaker
	timeout        time.Duration
}

// NewYouTubeAPI creates a Data API catalog. Extra options are appended after the
// API key, e.g. option.WithEndpoint in tests.
func NewYouTubeAPI(ctx context.Context, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*YouTubeAPI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	service, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	cfg := circuitbreaker.YouTubeAPIConfig()
	cfg.IsSuccessful = notFoundIsSuccess
	return &YouTubeAPI{
		service:        service,
		circuitBreaker: circuitbreaker.New(cfg),
		timeout:        timeout,
	}, nil
}

// UploadsCollection resolves a handle (without "@") to its uploads playlist.
func (a *YouTubeAPI) UploadsCollection(ctx context.Context, handle string) (resolve.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := circuitbreaker.Do(a.circuitBreaker, func() (*youtube.ChannelListResponse, error) {
		return a.service.Channels.List([]string{"contentDetails", "snippet"}).
			ForHandle(handle).
			Context(ctx).
			Do()
	})
	if err != nil {
		return resolve.Collection{}, fmt.Errorf("channels.list forHandle=%s: %w", handle, classifyAPIError(err))
	}

	if len(resp.Items) == 0 {
		return resolve.Collection{}, fmt.Errorf("handle %s: %w", handle, entity.ErrChannelNotFound)
	}

	ch := resp.Items[0]
	if ch.ContentDetails == nil || ch.ContentDetails.RelatedPlaylists == nil || ch.ContentDetails.RelatedPlaylists.Uploads == "" {
		return resolve.Collection{}, fmt.Errorf("handle %s has no uploads playlist: %w", handle, entity.ErrChannelNotFound)
	}

	name := ""
	if ch.Snippet != nil {
		name = ch.Snippet.Title
	}
	return resolve.Collection{
		ID:          ch.ContentDetails.RelatedPlaylists.Uploads,
		ChannelName: name,
	}, nil
}

// RecentUploads lists at most max items of an uploads playlist, newest first.
func (a *YouTubeAPI) RecentUploads(ctx context.Context, collectionID string, max int) ([]resolve.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := circuitbreaker.Do(a.circuitBreaker, func() (*youtube.PlaylistItemListResponse, error) {
		return a.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(collectionID).
			MaxResults(int64(max)).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list playlistId=%s: %w", collectionID, classifyAPIError(err))
	}

	uploads := make([]resolve.Upload, 0, len(resp.Items))
	for _, item := range resp.Items {
		s := item.Snippet
		if s == nil || s.ResourceId == nil || s.ResourceId.VideoId == "" {
			continue
		}
		uploads = append(uploads, resolve.Upload{
			VideoID:     s.ResourceId.VideoId,
			Title:       s.Title,
			Description: s.Description,
			ChannelName: s.ChannelTitle,
		})
		if len(uploads) == max {
			break
		}
	}
	return uploads, nil
}

// classifyAPIError maps a 404 to entity.ErrChannelNotFound and keeps everything else.
func classifyAPIError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", entity.ErrChannelNotFound, err)
	}
	return err
}

// notFoundIsSuccess keeps "no such channel" answers from tripping the breaker.
func notFoundIsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}
