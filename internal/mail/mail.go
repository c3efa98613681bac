package mail

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	ierr "github.com/mietevo/mietevo-backend/internal/errors"
)

// Email is the stored inbound email record.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`

	raw string
}

// Decompress gunzips a stored email blob. A corrupt blob is a fatal per-task
// error.
func Decompress(blob []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("email blob is not valid gzip").
			Mark(ierr.ErrInvalidOperation)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("email blob is truncated").
			Mark(ierr.ErrInvalidOperation)
	}
	return data, nil
}

// Parse decodes a stored email record. Data that is not the expected JSON
// shape still yields a usable email whose body is the raw dump.
func Parse(data []byte) *Email {
	var email Email
	if err := json.Unmarshal(data, &email); err != nil || (email.Text == "" && email.HTML == "") {
		return &Email{raw: string(data)}
	}
	return &email
}

// Body returns the best available text content: the plain-text part, then
// the tag-stripped HTML part, then the raw dump.
func (e *Email) Body() string {
	if text := strings.TrimSpace(e.Text); text != "" {
		return text
	}
	if html := strings.TrimSpace(e.HTML); html != "" {
		return StripTags(html)
	}
	return e.raw
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	breakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6])>`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	blankPattern  = regexp.MustCompile(`\n{3,}`)
)

// StripTags reduces an HTML body to readable plain text.
func StripTags(html string) string {
	text := scriptPattern.ReplaceAllString(html, "")
	text = breakPattern.ReplaceAllString(text, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
