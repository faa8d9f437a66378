package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/infra/catalog"
	"ytdigest/internal/usecase/resolve"
)

func newDataAPI(t *testing.T, handler http.HandlerFunc) *catalog.YouTubeAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := catalog.NewYouTubeAPI(context.Background(), "AIzaTestKey", 5*time.Second,
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return api
}

func TestYouTubeAPI_UploadsCollection(t *testing.T) {
	api := newDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/channels", r.URL.Path)
		assert.Equal(t, "t3dotgg", r.URL.Query().Get("forHandle"))
		assert.Equal(t, "AIzaTestKey", r.URL.Query().Get("key"))
		parts := strings.Split(strings.Join(r.URL.Query()["part"], ","), ",")
		assert.ElementsMatch(t, []string{"contentDetails", "snippet"}, parts)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [{
				"id": "UCbRP3c757lWg9M-U7TyEkXA",
				"snippet": {"title": "Theo - t3.gg"},
				"contentDetails": {"relatedPlaylists": {"uploads": "UUbRP3c757lWg9M-U7TyEkXA"}}
			}]
		}`))
	})

	got, err := api.UploadsCollection(context.Background(), "t3dotgg")
	require.NoError(t, err)
	assert.Equal(t, resolve.Collection{ID: "UUbRP3c757lWg9M-U7TyEkXA", ChannelName: "Theo - t3.gg"}, got)
}

func TestYouTubeAPI_UploadsCollection_NotFound(t *testing.T) {
	api := newDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	_, err := api.UploadsCollection(context.Background(), "nobody")
	assert.ErrorIs(t, err, entity.ErrChannelNotFound)
}

func TestYouTubeAPI_UploadsCollection_QuotaExceeded(t *testing.T) {
	api := newDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quota exceeded", "errors": [{"reason": "quotaExceeded"}]}}`))
	})

	_, err := api.UploadsCollection(context.Background(), "t3dotgg")
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrChannelNotFound)

	var gErr *googleapi.Error
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, http.StatusForbidden, gErr.Code)
}

func TestYouTubeAPI_RecentUploads(t *testing.T) {
	api := newDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/playlistItems", r.URL.Path)
		assert.Equal(t, "UU1", r.URL.Query().Get("playlistId"))
		assert.Equal(t, "15", r.URL.Query().Get("maxResults"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"snippet": {"title": "Newest", "description": "d1", "channelTitle": "Theo - t3.gg",
					"resourceId": {"kind": "youtube#video", "videoId": "v1"}}},
				{"snippet": {"title": "No id", "resourceId": {"kind": "youtube#video"}}},
				{"snippet": {"title": "Older", "description": "d2", "channelTitle": "Theo - t3.gg",
					"resourceId": {"kind": "youtube#video", "videoId": "v2"}}}
			]
		}`))
	})

	got, err := api.RecentUploads(context.Background(), "UU1", resolve.DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, []resolve.Upload{
		{VideoID: "v1", Title: "Newest", Description: "d1", ChannelName: "Theo - t3.gg"},
		{VideoID: "v2", Title: "Older", Description: "d2", ChannelName: "Theo - t3.gg"},
	}, got)
}

func TestYouTubeAPI_RecentUploads_PlaylistNotFound(t *testing.T) {
	api := newDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "playlist not found", "errors": [{"reason": "playlistNotFound"}]}}`))
	})

	_, err := api.RecentUploads(context.Background(), "UUgone", 15)
	assert.ErrorIs(t, err, entity.ErrChannelNotFound)
}

func TestNewYouTubeAPI_RequiresKey(t *testing.T) {
	_, err := catalog.NewYouTubeAPI(context.Background(), "", time.Second)
	assert.Error(t, err)
}
