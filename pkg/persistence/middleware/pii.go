package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/drip/pkg/adapters/kv"
	"github.com/aretw0/drip/pkg/domain"
)

// Mask replaces every PII match.
const Mask = "***"

type piiMiddleware struct {
	next     kv.Backend
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks text matching any of the
// patterns in lead messages before the transcript is persisted.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next kv.Backend) kv.Backend {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Put(ctx context.Context, key string, value []byte) error {
	if key != kv.KeyTranscript || len(m.patterns) == 0 {
		return m.next.Put(ctx, key, value)
	}

	var msgs []domain.Message
	if err := json.Unmarshal(value, &msgs); err != nil {
		return fmt.Errorf("failed to decode transcript for masking: %w", err)
	}
	for i := range msgs {
		if msgs[i].FromLead() {
			msgs[i].Content = m.mask(msgs[i].Content)
		}
	}
	masked, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return m.next.Put(ctx, key, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	return m.next.Get(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
