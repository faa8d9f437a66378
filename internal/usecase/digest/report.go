package digest

import (
	"time"

	"ytdigest/internal/domain/entity"
)

// Stage names a pipeline step. The values double as metric and span labels.
type Stage string

const (
	StageResolve    Stage = "resolve"
	StageTranscript Stage = "transcript"
	StageGenerate   Stage = "generate"
	StageAssemble   Stage = "assemble"
	StageDeliver    Stage = "deliver"
)

// Outcome is how a run finished.
type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeDeliverySkipped Outcome = "delivery_skipped"
	OutcomeNoVideos        Outcome = "no_videos"
	OutcomeNoTranscripts   Outcome = "no_transcripts"
	OutcomeNoArticles      Outcome = "no_articles"
	OutcomeFailed          Outcome = "failed"
)

// Aborted reports whether the run stopped before producing an e-book.
func (o Outcome) Aborted() bool {
	switch o {
	case OutcomeNoVideos, OutcomeNoTranscripts, OutcomeNoArticles:
		return true
	}
	return false
}

// StageCount is the number of items that entered and left a stage.
type StageCount struct {
	In  int
	Out int
}

// Drop records one item a stage discarded.
// ID is the channel handle for the resolve stage and the video ID otherwise.
type Drop struct {
	Stage  Stage
	ID     string
	Reason string
	Err    error
}

// Report summarizes a run. It is returned alongside stage-fatal errors too,
// filled up to the failing stage.
type Report struct {
	RunID     string
	Outcome   Outcome
	Counts    map[Stage]StageCount
	Dropped   []Drop
	Articles  []entity.Article
	EbookPath string
	Duration  time.Duration
}

func newReport(runID string) *Report {
	return &Report{
		RunID:  runID,
		Counts: make(map[Stage]StageCount, 5),
	}
}

// DroppedIn returns the drops recorded by stage, in order.
func (r *Report) DroppedIn(stage Stage) []Drop {
	var out []Drop
	for _, d := range r.Dropped {
		if d.Stage == stage {
			out = append(out, d)
		}
	}
	return out
}
