// Package share builds the public link of a post and the intent URLs used to
// post it to external networks.
package share

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const previewLength = 60

type Links struct {
	URL      string `json:"url"`
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
	LinkedIn string `json:"linkedin"`
}

func PostURL(baseURL, postID string) string {
	return strings.TrimRight(baseURL, "/") + "/post/" + url.PathEscape(postID)
}

func Build(baseURL, postID, content string) Links {
	postURL := PostURL(baseURL, postID)
	escaped := url.QueryEscape(postURL)

	return Links{
		URL:      postURL,
		Twitter:  "https://twitter.com/intent/tweet?url=" + escaped + "&text=" + url.QueryEscape(Preview(content)),
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + escaped,
		LinkedIn: "https://www.linkedin.com/sharing/share-offsite/?url=" + escaped,
	}
}

// Preview cuts content to 60 runes and marks the cut with "...".
func Preview(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}

	runes := []rune(content)
	return string(runes[:previewLength]) + "..."
}
