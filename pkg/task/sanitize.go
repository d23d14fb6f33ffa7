package task

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrSubmissionTooLarge = errors.New("submission exceeds maximum allowed size")
	ErrInvalidUTF8        = errors.New("submission contains invalid UTF-8 sequences")
)

// Sanitize rejects submissions larger than limit bytes or not valid UTF-8, and
// strips control characters other than newline, tab and carriage return.
// Oversized input is rejected, never truncated.
func Sanitize(submission string, limit int) (string, error) {
	if limit > 0 && len(submission) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrSubmissionTooLarge, len(submission), limit)
	}
	if !utf8.ValidString(submission) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(submission, unsafeControl) < 0 {
		return submission, nil
	}
	var b strings.Builder
	b.Grow(len(submission))
	for _, r := range submission {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
