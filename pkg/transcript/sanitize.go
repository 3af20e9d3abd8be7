package transcript

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/drip/pkg/domain"
)

// DefaultMaxInputSize bounds the byte length of a lead message.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitize rejects oversized or malformed lead input and strips control
// characters other than newline, tab and carriage return.
// A non-positive limit disables the size check.
func Sanitize(in domain.Inbound, limit int) (domain.Inbound, error) {
	content, err := sanitizeText(in.Content, limit)
	if err != nil {
		return domain.Inbound{}, err
	}
	ref, err := sanitizeText(in.MediaRef, limit)
	if err != nil {
		return domain.Inbound{}, err
	}
	in.Content = content
	in.MediaRef = ref
	return in, nil
}

func sanitizeText(input string, limit int) (string, error) {
	if limit > 0 && len(input) > limit {
		// Rejected rather than truncated.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
