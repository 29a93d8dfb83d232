package datastrategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// Encoding types for submissions.
const (
	EncForm = "application/x-www-form-urlencoded"
	EncJSON = "application/json"
	EncText = "text/plain"
)

// Submission is a form-like mutation request.
type Submission struct {
	// Method is GET, POST, PUT, PATCH or DELETE. Empty means POST.
	Method string

	// Exactly one of FormData, JSON or Text is normally set.
	FormData url.Values
	JSON     any
	Text     string

	// EncType overrides the encoding chosen from the payload.
	EncType string
}

// FormMethod returns the upper-case method, defaulting to POST.
func (s *Submission) FormMethod() string {
	if s == nil {
		return http.MethodGet
	}
	if s.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(s.Method)
}

// IsMutation reports whether the submission runs an action. GET
// submissions are navigations with the form data in the search.
func (s *Submission) IsMutation() bool {
	return s != nil && s.FormMethod() != http.MethodGet
}

func (s *Submission) encType() string {
	switch {
	case s.EncType != "":
		return s.EncType
	case s.JSON != nil:
		return EncJSON
	case s.FormData == nil && s.Text != "":
		return EncText
	default:
		return EncForm
	}
}

func (s *Submission) body() (io.Reader, string, error) {
	enc := s.encType()
	switch enc {
	case EncJSON:
		data, err := json.Marshal(s.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encoding submission: %w", err)
		}
		return bytes.NewReader(data), enc, nil
	case EncText:
		return strings.NewReader(s.Text), enc, nil
	default:
		return strings.NewReader(s.FormData.Encode()), enc, nil
	}
}

// ApplyGetSubmission moves a GET submission's form data into the search
// of href, replacing any existing search.
func ApplyGetSubmission(href string, s *Submission) string {
	if s == nil || s.IsMutation() {
		return href
	}
	p := routepath.Parse(href)
	p.Search = ""
	if encoded := s.FormData.Encode(); encoded != "" {
		p.Search = "?" + encoded
	}
	return p.String()
}

// NewRequest builds the request handed to loaders and actions. Loaders
// always receive a GET; a mutating submission becomes the body.
func NewRequest(ctx context.Context, origin, href string, s *Submission) (*http.Request, error) {
	p := routepath.Parse(href)
	p.Hash = ""
	target := strings.TrimRight(origin, "/") + p.String()

	if !s.IsMutation() {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}

	body, contentType, err := s.body()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, s.FormMethod(), target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}
