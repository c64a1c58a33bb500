// Package tokencache memoizes the application bearer token for the lifetime of
// the process.
package tokencache

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Provider performs the actual credential exchange.
type Provider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Cache holds at most one token. Once a token is stored it is never replaced;
// expiry is not tracked. Callers that miss the cache at the same time share a
// single exchange.
type Cache struct {
	provider Provider

	mu    sync.RWMutex
	token *oauth2.Token

	flight singleflight.Group
}

func New(provider Provider) *Cache {
	return &Cache{provider: provider}
}

// Token returns the cached token, obtaining one first if necessary. Errors from
// the provider are returned unchanged and nothing is cached, so the next call
// tries again.
func (c *Cache) Token(ctx context.Context) (*oauth2.Token, error) {
	if token, ok := c.Cached(); ok {
		return token, nil
	}

	ch := c.flight.DoChan("token", func() (any, error) {
		// Another flight may have finished between the read above and now.
		if token, ok := c.Cached(); ok {
			return token, nil
		}
		// The exchange is shared, so it must outlive any single caller.
		token, err := c.provider.Token(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		return token, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

// Cached reports the stored token without triggering an exchange.
func (c *Cache) Cached() (*oauth2.Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != nil
}

// Prime obtains a token ahead of the first request. A failure is logged and
// returned but leaves the cache empty, so requests retry lazily.
func (c *Cache) Prime(ctx context.Context) error {
	if _, err := c.Token(ctx); err != nil {
		log.Warn().Err(err).Msg("unable to prime bearer token cache, will retry on first request")
		return err
	}
	log.Info().Msg("primed bearer token cache")
	return nil
}
