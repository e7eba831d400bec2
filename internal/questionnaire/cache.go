package questionnaire

import (
	"context"
	"sync"
)

// CachingLoader memoizes successful loads. Callers always get a deep copy, so
// the cached definition cannot change underneath another request. Failures
// are not cached.
type CachingLoader struct {
	next Source

	mu    sync.RWMutex
	items map[string]Questionnaire
}

func NewCachingLoader(next Source) *CachingLoader {
	return &CachingLoader{next: next, items: map[string]Questionnaire{}}
}

func (c *CachingLoader) Load(ctx context.Context, name string) (Questionnaire, error) {
	c.mu.RLock()
	q, ok := c.items[name]
	c.mu.RUnlock()
	if ok {
		return q.Clone(), nil
	}

	q, err := c.next.Load(ctx, name)
	if err != nil {
		return Questionnaire{}, err
	}
	c.mu.Lock()
	c.items[name] = q.Clone()
	c.mu.Unlock()
	return q, nil
}

func (c *CachingLoader) List(ctx context.Context) ([]string, error) {
	return c.next.List(ctx)
}
