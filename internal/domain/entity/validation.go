package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs.
const maxURLLength = 2048

// ValidateWatchURL checks that rawURL is a well-formed https watch URL carrying a video ID.
// Returns a ValidationError if the URL is invalid or empty.
func ValidateWatchURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("parse URL: %v", err)}
	}

	if parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	if strings.TrimSpace(parsedURL.Query().Get("v")) == "" {
		return &ValidationError{Field: "url", Message: "URL must carry a video id"}
	}

	return nil
}
