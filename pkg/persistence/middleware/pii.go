package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks variables whose keys match
// the patterns before they reach the backing store. Masking is one-way: the
// engine keeps working with the real values in memory, only the persisted
// copy is redacted.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sess *domain.Session) error {
	// Clone first so the in-memory session the engine holds is untouched.
	cloned := *sess
	cloned.Variables = make(map[string]string, len(sess.Variables))
	for k, v := range sess.Variables {
		cloned.Variables[k] = v
	}

	for k := range cloned.Variables {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				cloned.Variables[k] = "***"
				break
			}
		}
	}

	return m.next.Save(ctx, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
