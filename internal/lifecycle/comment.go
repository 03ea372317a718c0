package lifecycle

import (
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

const (
	MaxCommentLength = 500

	// maxSanitizePasses bounds nested entity encodings such as &amp;lt;.
	maxSanitizePasses = 8
)

var commentPolicy = bluemonday.StrictPolicy()

// SanitizeComment strips all markup and surrounding whitespace. Entities are
// decoded and the result sanitized again until it stops changing, so encoded
// markup cannot come back to life. Text that does not settle is dropped.
func SanitizeComment(text string) string {
	clean := text
	for range maxSanitizePasses {
		next := html.UnescapeString(commentPolicy.Sanitize(clean))
		if next == clean {
			return strings.TrimSpace(clean)
		}
		clean = next
	}
	return ""
}

// SetComment adds or replaces the order comment. There is no status
// precondition.
func SetComment(o *domain.Order, text string, now time.Time) error {
	clean := SanitizeComment(text)
	if clean == "" {
		return ValidationError{Field: "comment", Reason: "comment must not be empty"}
	}
	if utf8.RuneCountInString(clean) > MaxCommentLength {
		return ValidationError{Field: "comment", Reason: "comment must be at most 500 characters"}
	}
	o.Comment = &clean
	o.UpdatedAt = now
	return nil
}

// RemoveComment clears the comment and reports whether there was one.
func RemoveComment(o *domain.Order, now time.Time) bool {
	if o.Comment == nil {
		return false
	}
	o.Comment = nil
	o.UpdatedAt = now
	return true
}
