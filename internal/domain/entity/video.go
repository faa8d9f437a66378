// Package entity defines the core domain entities of the digest pipeline.
// It contains Video, Article and ChannelRef along with their validation rules
// and the sentinel errors every pipeline stage classifies its failures with.
package entity

import (
	"fmt"
	"strings"
)

// WatchURLPrefix is the canonical watch URL prefix; a video's URL is this prefix plus its ID.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// Video is one resolved upload. Transcript stays nil until the transcript stage succeeds.
type Video struct {
	ID          string
	Title       string
	Description string
	ChannelName string
	URL         string
	Transcript  *string
}

// NewVideo builds a Video and derives its watch URL from the ID.
func NewVideo(id, title, description, channelName string) *Video {
	return &Video{
		ID:          id,
		Title:       title,
		Description: description,
		ChannelName: channelName,
		URL:         WatchURL(id),
	}
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return WatchURLPrefix + id
}

// HasTranscript reports whether a non-blank transcript is attached.
func (v *Video) HasTranscript() bool {
	return v != nil && v.Transcript != nil && strings.TrimSpace(*v.Transcript) != ""
}

// AttachTranscript sets the transcript text.
func (v *Video) AttachTranscript(text string) {
	v.Transcript = &text
}

// TranscriptText returns the transcript or "" when absent.
func (v *Video) TranscriptText() string {
	if v == nil || v.Transcript == nil {
		return ""
	}
	return *v.Transcript
}

// String is used as the log identifier for a video.
func (v *Video) String() string {
	return fmt.Sprintf("%s (%s)", v.ID, v.Title)
}

// ChannelRef is a channel handle as configured, e.g. "@t3dotgg".
type ChannelRef string

// Normalize strips surrounding whitespace and a single leading "@".
func (c ChannelRef) Normalize() string {
	return strings.TrimPrefix(strings.TrimSpace(string(c)), "@")
}
