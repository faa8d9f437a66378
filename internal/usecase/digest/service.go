package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ytdigest/internal/domain/entity"
	"ytdigest/internal/observability/logging"
	"ytdigest/internal/observability/metrics"
	"ytdigest/internal/observability/tracing"
	"ytdigest/internal/utils/text"
)

// Resolver maps a channel handle to its latest long-form upload.
// (nil, nil) means the channel had nothing eligible.
type Resolver interface {
	ResolveLatestLongForm(ctx context.Context, handle entity.ChannelRef) (*entity.Video, error)
}

// TranscriptProvider fetches the transcript text of a video.
type TranscriptProvider interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Writer turns a transcribed video into a Markdown article body.
type Writer interface {
	Generate(ctx context.Context, video *entity.Video) (string, error)
}

// Assembler writes the articles, in order, to an e-book at outputPath.
type Assembler interface {
	Build(ctx context.Context, articles []entity.Article, outputPath string) error
}

// Mailer sends the digest with the e-book attached.
type Mailer interface {
	Send(ctx context.Context, recipient string, articles []entity.Article, ebookPath string) error
}

// Config holds the per-run inputs.
type Config struct {
	Channels   []entity.ChannelRef
	OutputPath string
	Recipient  string
}

// Service orchestrates a digest run.
// Mailer may be nil, in which case the e-book is built but not sent.
type Service struct {
	Resolver    Resolver
	Transcripts TranscriptProvider
	Writer      Writer
	Assembler   Assembler
	Mailer      Mailer
	Config      Config
}

// NewService wires a pipeline. Pass a nil mailer when no delivery account is configured.
func NewService(cfg Config, resolver Resolver, transcripts TranscriptProvider, writer Writer, assembler Assembler, mailer Mailer) *Service {
	return &Service{
		Resolver:    resolver,
		Transcripts: transcripts,
		Writer:      writer,
		Assembler:   assembler,
		Mailer:      mailer,
		Config:      cfg,
	}
}

// Run executes one digest.
//
// Returns:
//   - (report, nil) for a delivered digest, a skipped delivery, or when a stage
//     produced nothing (OutcomeNoVideos, OutcomeNoTranscripts, OutcomeNoArticles)
//   - (report, *StageError) when assembly or delivery failed, or ctx was cancelled
//
// The report is never nil.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		ctx, runID = logging.WithRunID(ctx, logging.FromContext(ctx), "")
	}
	logger := logging.FromContext(ctx)
	report := newReport(runID)

	logger.Info("digest run started",
		slog.Int("channels", len(s.Config.Channels)),
		slog.String("output_path", s.Config.OutputPath))

	videos, err := runStage(ctx, report, StageResolve, s.Config.Channels,
		func(h entity.ChannelRef) string { return string(h) },
		s.resolveOne)
	if err != nil {
		return s.fail(ctx, report, start, StageResolve, err)
	}
	if len(videos) == 0 {
		return s.complete(ctx, report, start, OutcomeNoVideos)
	}

	transcribed, err := runStage(ctx, report, StageTranscript, videos, videoID, s.transcribeOne)
	if err != nil {
		return s.fail(ctx, report, start, StageTranscript, err)
	}
	if len(transcribed) == 0 {
		return s.complete(ctx, report, start, OutcomeNoTranscripts)
	}

	articles, err := runStage(ctx, report, StageGenerate, transcribed, videoID, s.generateOne)
	if err != nil {
		return s.fail(ctx, report, start, StageGenerate, err)
	}
	if len(articles) == 0 {
		return s.complete(ctx, report, start, OutcomeNoArticles)
	}
	report.Articles = articles

	err = runStep(ctx, report, StageAssemble, len(articles), func(ctx context.Context) error {
		if err := s.Assembler.Build(ctx, articles, s.Config.OutputPath); err != nil {
			return classify(err, entity.ErrAssembly)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, report, start, StageAssemble, err)
	}
	report.EbookPath = s.Config.OutputPath

	if s.Mailer == nil {
		logger.Info("mail credentials not configured, skipping delivery",
			slog.String("ebook_path", report.EbookPath),
			slog.Int("articles", len(articles)))
		return s.complete(ctx, report, start, OutcomeDeliverySkipped)
	}

	err = runStep(ctx, report, StageDeliver, 1, func(ctx context.Context) error {
		started := time.Now()
		err := s.Mailer.Send(ctx, s.Config.Recipient, articles, report.EbookPath)
		metrics.RecordExternalCall("mail", err, time.Since(started))
		if err != nil && !errors.Is(err, entity.ErrAttachmentRead) {
			return classify(err, entity.ErrDelivery)
		}
		return err
	})
	if err != nil {
		logger.Warn("delivery failed, e-book kept", slog.String("ebook_path", report.EbookPath))
		return s.fail(ctx, report, start, StageDeliver, err)
	}

	return s.complete(ctx, report, start, OutcomeDelivered)
}

func (s *Service) resolveOne(ctx context.Context, handle entity.ChannelRef) (*entity.Video, error) {
	video, err := s.Resolver.ResolveLatestLongForm(ctx, handle)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, errNoLongForm
	}
	return video, nil
}

func (s *Service) transcribeOne(ctx context.Context, video *entity.Video) (*entity.Video, error) {
	start := time.Now()
	transcript, err := s.Transcripts.Fetch(ctx, video.ID)
	metrics.RecordExternalCall("transcript", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: empty transcript for %s", entity.ErrTranscriptUnavailable, video.ID)
	}

	video.AttachTranscript(transcript)
	metrics.RecordTranscriptWords(text.CountWords(transcript))
	return video, nil
}

func (s *Service) generateOne(ctx context.Context, video *entity.Video) (entity.Article, error) {
	start := time.Now()
	body, err := s.Writer.Generate(ctx, video)
	metrics.RecordExternalCall("generation", err, time.Since(start))
	if err != nil {
		return entity.Article{}, err
	}

	article := entity.NewArticle(video, body)
	if err := article.Validate(); err != nil {
		return entity.Article{}, fmt.Errorf("article for %s: %w", video.ID, err)
	}
	metrics.RecordArticleWords(text.CountWords(body))
	return *article, nil
}

func (s *Service) complete(ctx context.Context, report *Report, start time.Time, outcome Outcome) (*Report, error) {
	report.Outcome = outcome
	report.Duration = time.Since(start)
	metrics.RecordRun(string(outcome), report.Duration)

	attrs := []any{
		slog.String("outcome", string(outcome)),
		slog.Int("articles", len(report.Articles)),
		slog.Int("dropped", len(report.Dropped)),
		slog.Int64("duration_ms", report.Duration.Milliseconds()),
	}
	logger := logging.FromContext(ctx)
	if outcome.Aborted() {
		logger.Warn("digest run finished without an e-book", attrs...)
	} else {
		logger.Info("digest run finished", attrs...)
	}
	return report, nil
}

func (s *Service) fail(ctx context.Context, report *Report, start time.Time, stage Stage, err error) (*Report, error) {
	report.Outcome = OutcomeFailed
	report.Duration = time.Since(start)
	metrics.RecordRun(string(OutcomeFailed), report.Duration)

	logging.FromContext(ctx).Error("digest run failed",
		slog.String("stage", string(stage)),
		slog.Int("dropped", len(report.Dropped)),
		slog.Int64("duration_ms", report.Duration.Milliseconds()),
		logging.ErrorAttr(err))
	return report, &StageError{Stage: stage, Err: err}
}

// runStage applies fn to every item in order. A failed item is recorded in the
// report and skipped; only context cancellation stops the stage.
func runStage[I, O any](ctx context.Context, report *Report, stage Stage, items []I, id func(I) string, fn func(context.Context, I) (O, error)) ([]O, error) {
	logger := logging.FromContext(ctx).With(slog.String("stage", string(stage)))
	started := time.Now()
	ctx, span := tracing.StartStage(ctx, string(stage), len(items))
	logger.Info("stage started", slog.Int("in", len(items)))

	out := make([]O, 0, len(items))
	var abort error
	for _, item := range items {
		if abort = ctx.Err(); abort != nil {
			break
		}

		itemID := id(item)
		itemCtx, itemSpan := tracing.StartItem(ctx, string(stage), itemID)
		result, err := fn(itemCtx, item)
		if err == nil {
			tracing.End(itemSpan, 1, nil)
			out = append(out, result)
			continue
		}

		tracing.End(itemSpan, 0, err)
		if abort = ctx.Err(); abort != nil {
			break
		}
		report.drop(logger, stage, itemID, err)
	}

	report.Counts[stage] = StageCount{In: len(items), Out: len(out)}
	metrics.RecordStage(string(stage), len(items), len(out), time.Since(started))
	tracing.End(span, len(out), abort)
	if abort != nil {
		return nil, abort
	}

	logger.Info("stage completed",
		slog.Int("in", len(items)),
		slog.Int("out", len(out)),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return out, nil
}

// runStep runs a stage that either succeeds as a whole or ends the run.
func runStep(ctx context.Context, report *Report, stage Stage, in int, fn func(context.Context) error) error {
	logger := logging.FromContext(ctx).With(slog.String("stage", string(stage)))
	started := time.Now()
	ctx, span := tracing.StartStage(ctx, string(stage), in)
	logger.Info("stage started", slog.Int("in", in))

	err := fn(ctx)
	out := 1
	if err != nil {
		out = 0
	}

	report.Counts[stage] = StageCount{In: in, Out: out}
	metrics.RecordStage(string(stage), in, out, time.Since(started))
	tracing.End(span, out, err)
	if err != nil {
		return err
	}

	logger.Info("stage completed",
		slog.Int("in", in),
		slog.Int("out", out),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return nil
}

func (r *Report) drop(logger *slog.Logger, stage Stage, id string, err error) {
	reason := dropReason(err)
	r.Dropped = append(r.Dropped, Drop{Stage: stage, ID: id, Reason: reason, Err: err})
	metrics.RecordDrop(string(stage), reason)

	if errors.Is(err, errNoLongForm) {
		logger.Info("item skipped", slog.String("item", id), slog.String("reason", reason))
		return
	}
	logger.Warn("item dropped",
		slog.String("item", id),
		slog.String("reason", reason),
		logging.ErrorAttr(err))
}

// dropReason maps an item error to a short metric-safe kind.
func dropReason(err error) string {
	switch {
	case errors.Is(err, errNoLongForm):
		return "no_long_form_upload"
	case errors.Is(err, entity.ErrChannelNotFound):
		return "channel_not_found"
	case errors.Is(err, entity.ErrTranscriptUnavailable):
		return "transcript_unavailable"
	case errors.Is(err, entity.ErrTranscriptProviderError):
		return "transcript_provider_error"
	case errors.Is(err, entity.ErrValidationFailed):
		return "invalid_article"
	case errors.Is(err, entity.ErrGeneration):
		return "generation_failed"
	default:
		return "error"
	}
}

// classify makes sure err matches sentinel under errors.Is.
func classify(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func videoID(v *entity.Video) string {
	return v.ID
}
