package markdown

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer implements interfaces.RichTextSanitizer on top of a bluemonday
// policy.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewUGCSanitizer allows the formatting markup editors produce and strips
// scripts, event handlers and unsafe URLs. Inline style attributes survive
// because block copy relies on them.
func NewUGCSanitizer() *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowStyling()
	policy.AllowAttrs("style").Globally()
	return &Sanitizer{policy: policy}
}

// NewStrictSanitizer strips every tag and keeps text only.
func NewStrictSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns the cleaned markup.
func (s *Sanitizer) Sanitize(html string) string {
	if s == nil || s.policy == nil {
		return html
	}
	return s.policy.Sanitize(html)
}
