package writer

import (
	"fmt"

	"ytdigest/internal/domain/entity"
)

const promptTemplate = `You are a skilled magazine writer. Transform this YouTube video transcript into a well-written, engaging article.

VIDEO TITLE: %s
CHANNEL: %s
VIDEO URL: %s

VIDEO DESCRIPTION:
%s

TRANSCRIPT:
%s

---

Remix this YouTube transcript into a magazine article. Guidelines:
- Use the video title and description to correct any transcription errors, especially names of people, companies, or technical terms. The description often contains the correct spellings.
- Start with an engaging headline (different from the video title)
- The audience is a curious individual who is generally smart but not a specialist or expert in the area mentioned in the video
- Highly engaging and readable. Wherever jargon or obscure references appear, explain them. Extremely well-written; think New Yorker or the Atlantic
- Capture the key insights, especially contrarian viewpoints, memorable anecdotes, and surprising insights. Preserve key quotes (clean up filler words or transcription errors).
- There's no fixed length requirement; it depends on the length of the original article as well as the insight density. Make your own judgment. This should be a satisfying long-read.
- Do NOT include phrases like "In this video" - write it as a standalone article. Assume the reader has not watched the video and has zero context about it. This article is meant to be as a replacement, not complement, for watching the video.

Format the article in clean markdown.`

// BuildPrompt renders the article instruction for one video.
// The output depends only on the video, so the same video always yields the same prompt.
// The transcript is embedded in full.
func BuildPrompt(video *entity.Video) string {
	return fmt.Sprintf(promptTemplate,
		video.Title,
		video.ChannelName,
		video.URL,
		video.Description,
		video.TranscriptText())
}
