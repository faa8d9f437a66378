package resolve_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/infra/shorts"
	"ytdigest/internal/usecase/resolve"
)

/* ───────── スタブ実装 ───────── */

type stubCatalog struct {
	collections map[string]resolve.Collection
	uploads     map[string][]resolve.Upload
	listErr     error

	gotHandles []string
	gotMax     int
}

func (s *stubCatalog) UploadsCollection(_ context.Context, handle string) (resolve.Collection, error) {
	s.gotHandles = append(s.gotHandles, handle)
	c, ok := s.collections[handle]
	if !ok {
		return resolve.Collection{}, fmt.Errorf("handle %s: %w", handle, entity.ErrChannelNotFound)
	}
	return c, nil
}

func (s *stubCatalog) RecentUploads(_ context.Context, id string, max int) ([]resolve.Upload, error) {
	s.gotMax = max
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.uploads[id], nil
}

type stubShorts struct {
	shorts map[string]bool
	errs   map[string]error
	probed []string
}

func (s *stubShorts) IsShort(_ context.Context, id string) (bool, error) {
	s.probed = append(s.probed, id)
	if err := s.errs[id]; err != nil {
		return false, err
	}
	return s.shorts[id], nil
}

func catalogWith(uploads ...resolve.Upload) *stubCatalog {
	return &stubCatalog{
		collections: map[string]resolve.Collection{
			"t3dotgg": {ID: "UUabc", ChannelName: "Theo - t3.gg"},
		},
		uploads: map[string][]resolve.Upload{"UUabc": uploads},
	}
}

func upload(id string) resolve.Upload {
	return resolve.Upload{VideoID: id, Title: "Title " + id, Description: "Desc " + id, ChannelName: "Theo - t3.gg"}
}

/* ───────── テスト ───────── */

func TestResolveLatestLongForm_StripsHandlePrefix(t *testing.T) {
	catalog := catalogWith(upload("v1"))
	svc := resolve.NewService(catalog, &stubShorts{}, "")

	_, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
	require.NoError(t, err)
	assert.Equal(t, []string{"t3dotgg"}, catalog.gotHandles)
	assert.Equal(t, resolve.DefaultWindow, catalog.gotMax)
}

func TestResolveLatestLongForm_SkipsShorts(t *testing.T) {
	catalog := catalogWith(upload("s1"), upload("s2"), upload("long1"), upload("long2"))
	shorts := &stubShorts{shorts: map[string]bool{"s1": true, "s2": true}}
	svc := resolve.NewService(catalog, shorts, resolve.ProbeFailureLongForm)

	video, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
	require.NoError(t, err)
	require.NotNil(t, video)

	assert.Equal(t, "long1", video.ID)
	assert.Equal(t, "Title long1", video.Title)
	assert.Equal(t, "Desc long1", video.Description)
	assert.Equal(t, "Theo - t3.gg", video.ChannelName)
	assert.Equal(t, "https://www.youtube.com/watch?v=long1", video.URL)
	assert.Nil(t, video.Transcript)
	assert.Equal(t, []string{"s1", "s2", "long1"}, shorts.probed, "probing stops at the first long-form upload")
}

func TestResolveLatestLongForm_NoneFound(t *testing.T) {
	tests := []struct {
		name    string
		uploads []resolve.Upload
	}{
		{name: "empty window", uploads: nil},
		{name: "all shorts", uploads: []resolve.Upload{upload("s1"), upload("s2")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shorts := &stubShorts{shorts: map[string]bool{"s1": true, "s2": true}}
			svc := resolve.NewService(catalogWith(tt.uploads...), shorts, "")

			video, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
			assert.NoError(t, err)
			assert.Nil(t, video)
		})
	}
}

func TestResolveLatestLongForm_ChannelNotFound(t *testing.T) {
	svc := resolve.NewService(catalogWith(), &stubShorts{}, "")

	video, err := svc.ResolveLatestLongForm(context.Background(), "@missing")
	assert.Nil(t, video)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrChannelNotFound)

	var rErr *resolve.ResolveError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "@missing", rErr.Handle)
}

func TestResolveLatestLongForm_ListError(t *testing.T) {
	catalog := catalogWith()
	catalog.listErr = errors.New("quota exceeded")
	svc := resolve.NewService(catalog, &stubShorts{}, "")

	_, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestResolveLatestLongForm_EmptyHandle(t *testing.T) {
	svc := resolve.NewService(catalogWith(), &stubShorts{}, "")

	_, err := svc.ResolveLatestLongForm(context.Background(), " @ ")
	assert.ErrorIs(t, err, resolve.ErrEmptyHandle)
}

func TestResolveLatestLongForm_ProbeFailurePolicy(t *testing.T) {
	probeErr := errors.New("connection reset")

	tests := []struct {
		name   string
		policy resolve.ProbeFailurePolicy
		wantID string
	}{
		{name: "long_form keeps the unprobeable video", policy: resolve.ProbeFailureLongForm, wantID: "flaky"},
		{name: "short skips the unprobeable video", policy: resolve.ProbeFailureShort, wantID: "next"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shorts := &stubShorts{errs: map[string]error{"flaky": probeErr}}
			svc := resolve.NewService(catalogWith(upload("flaky"), upload("next")), shorts, tt.policy)

			video, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
			require.NoError(t, err)
			require.NotNil(t, video)
			assert.Equal(t, tt.wantID, video.ID)
		})
	}
}

func TestResolveLatestLongForm_RateLimitedProbeAppliesPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	prober := shorts.NewProber(srv.Client(), srv.URL)

	tests := []struct {
		name      string
		policy    resolve.ProbeFailurePolicy
		wantVideo string
	}{
		{name: "long_form keeps the newest upload", policy: resolve.ProbeFailureLongForm, wantVideo: "v1"},
		{name: "short skips every upload", policy: resolve.ProbeFailureShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := resolve.NewService(catalogWith(upload("v1"), upload("v2")), prober, tt.policy)

			video, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
			require.NoError(t, err)
			if tt.wantVideo == "" {
				assert.Nil(t, video)
				return
			}
			require.NotNil(t, video)
			assert.Equal(t, tt.wantVideo, video.ID)
		})
	}
}

func TestResolveLatestLongForm_CancelledDuringProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	shorts := &stubShorts{errs: map[string]error{"v1": context.Canceled}}
	svc := resolve.NewService(catalogWith(upload("v1")), shorts, resolve.ProbeFailureLongForm)

	video, err := svc.ResolveLatestLongForm(ctx, "@t3dotgg")
	assert.Nil(t, video)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveLatestLongForm_TruncatesOversizedListing(t *testing.T) {
	uploads := make([]resolve.Upload, 0, 20)
	shortsMap := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("v%02d", i)
		uploads = append(uploads, upload(id))
		shortsMap[id] = i < 19
	}
	shorts := &stubShorts{shorts: shortsMap}
	svc := resolve.NewService(catalogWith(uploads...), shorts, "")

	video, err := svc.ResolveLatestLongForm(context.Background(), "@t3dotgg")
	require.NoError(t, err)
	assert.Nil(t, video, "the only long-form upload is outside the 15-item window")
	assert.Len(t, shorts.probed, resolve.DefaultWindow)
}

func TestResolveLatestLongForm_FallsBackToCollectionName(t *testing.T) {
	up := upload("v1")
	up.ChannelName = ""
	svc := resolve.NewService(catalogWith(up), &stubShorts{}, "")

	video, err := svc.ResolveLatestLongForm(context.Background(), "t3dotgg")
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, "Theo - t3.gg", video.ChannelName)
}

func TestParseProbeFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    resolve.ProbeFailurePolicy
		wantErr bool
	}{
		{in: "", want: resolve.ProbeFailureLongForm},
		{in: "long_form", want: resolve.ProbeFailureLongForm},
		{in: " SHORT ", want: resolve.ProbeFailureShort},
		{in: "skip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolve.ParseProbeFailurePolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, resolve.ErrInvalidProbePolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
