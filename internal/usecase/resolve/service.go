package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/observability/logging"
	"ytdigest/internal/observability/metrics"
)

// DefaultWindow is how many of a channel's newest uploads are considered.
const DefaultWindow = 15

// Collection identifies a channel's uploads listing.
type Collection struct {
	ID          string
	ChannelName string
}

// Upload is one entry of an uploads listing, newest first.
type Upload struct {
	VideoID     string
	Title       string
	Description string
	ChannelName string
}

// Catalog looks up channels and their recent uploads.
type Catalog interface {
	// UploadsCollection maps a normalized handle (no leading "@") to its uploads collection.
	// It returns an error wrapping entity.ErrChannelNotFound when no channel matches.
	UploadsCollection(ctx context.Context, handle string) (Collection, error)

	// RecentUploads returns at most max uploads, newest first.
	RecentUploads(ctx context.Context, collectionID string, max int) ([]Upload, error)
}

// ShortsClassifier reports whether a video is a short-form clip.
type ShortsClassifier interface {
	IsShort(ctx context.Context, videoID string) (bool, error)
}

// Service resolves channel handles to their latest long-form upload.
type Service struct {
	Catalog Catalog
	Shorts  ShortsClassifier
	Policy  ProbeFailurePolicy
	Window  int
}

// NewService creates a resolver with the default upload window.
// An empty policy means DefaultProbeFailurePolicy.
func NewService(catalog Catalog, shorts ShortsClassifier, policy ProbeFailurePolicy) *Service {
	if policy == "" {
		policy = DefaultProbeFailurePolicy
	}
	return &Service{
		Catalog: catalog,
		Shorts:  shorts,
		Policy:  policy,
		Window:  DefaultWindow,
	}
}

// ResolveLatestLongForm returns the most recent non-short upload of handle.
//
// Returns:
//   - (*entity.Video, nil) for the first long-form upload in the window
//   - (nil, nil) when the window is empty or every upload is a short
//   - (nil, *ResolveError) wrapping entity.ErrChannelNotFound or a catalog transport error
//
// A failed probe is logged and classified by s.Policy; it never fails the resolution.
// Context cancellation does.
func (s *Service) ResolveLatestLongForm(ctx context.Context, handle entity.ChannelRef) (*entity.Video, error) {
	logger := logging.FromContext(ctx)
	name := handle.Normalize()
	if name == "" {
		return nil, &ResolveError{Handle: string(handle), Err: ErrEmptyHandle}
	}

	start := time.Now()
	collection, err := s.Catalog.UploadsCollection(ctx, name)
	metrics.RecordExternalCall("catalog", err, time.Since(start))
	if err != nil {
		return nil, &ResolveError{Handle: string(handle), Err: err}
	}

	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}

	start = time.Now()
	uploads, err := s.Catalog.RecentUploads(ctx, collection.ID, window)
	metrics.RecordExternalCall("catalog", err, time.Since(start))
	if err != nil {
		return nil, &ResolveError{Handle: string(handle), Err: fmt.Errorf("list uploads %s: %w", collection.ID, err)}
	}
	if len(uploads) > window {
		uploads = uploads[:window]
	}

	for _, up := range uploads {
		short, err := s.classify(ctx, up.VideoID)
		if err != nil {
			return nil, &ResolveError{Handle: string(handle), Err: err}
		}
		if short {
			logger.Debug("skipping short-form upload",
				slog.String("channel", string(handle)),
				slog.String("video_id", up.VideoID))
			continue
		}

		channelName := up.ChannelName
		if channelName == "" {
			channelName = collection.ChannelName
		}
		return entity.NewVideo(up.VideoID, up.Title, up.Description, channelName), nil
	}

	logger.Info("no long-form upload in window",
		slog.String("channel", string(handle)),
		slog.Int("uploads_checked", len(uploads)))
	return nil, nil
}

// classify runs the probe and applies the failure policy.
// Only context cancellation is returned as an error.
func (s *Service) classify(ctx context.Context, videoID string) (bool, error) {
	start := time.Now()
	short, err := s.Shorts.IsShort(ctx, videoID)
	metrics.RecordExternalCall("shorts_probe", err, time.Since(start))
	if err == nil {
		return short, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	treatAsShort := s.Policy.treatAsShort()
	logging.FromContext(ctx).Warn("shorts probe failed, applying policy",
		slog.String("video_id", videoID),
		slog.String("policy", string(s.Policy)),
		slog.Bool("treated_as_short", treatAsShort),
		logging.ErrorAttr(err))
	return treatAsShort, nil
}
