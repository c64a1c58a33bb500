package tokencache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type countingProvider struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
}

func (p *countingProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.calls.Add(1)
	if p.release != nil {
		<-p.release
	}
	if p.err != nil {
		return nil, p.err
	}
	return &oauth2.Token{AccessToken: "T", TokenType: "bearer"}, nil
}

func TestCache_MemoizesSequentialCalls(t *testing.T) {
	provider := &countingProvider{}
	cache := New(provider)

	_, ok := cache.Cached()
	require.False(t, ok)

	first, err := cache.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T", first.AccessToken)

	second, err := cache.Token(context.Background())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, int32(1), provider.calls.Load())
}

func TestCache_ConcurrentMissesShareOneExchange(t *testing.T) {
	provider := &countingProvider{release: make(chan struct{})}
	cache := New(provider)

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]*oauth2.Token, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = cache.Token(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(provider.release)
	wg.Wait()

	require.Equal(t, int32(1), provider.calls.Load())
	for i := range tokens {
		require.NoError(t, errs[i])
		require.Equal(t, "T", tokens[i].AccessToken)
	}
}

func TestCache_FailureIsNotCached(t *testing.T) {
	provider := &countingProvider{err: errors.New("bad creds")}
	cache := New(provider)

	_, err := cache.Token(context.Background())
	require.EqualError(t, err, "bad creds")
	_, ok := cache.Cached()
	require.False(t, ok)

	provider.err = nil
	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T", token.AccessToken)
	require.Equal(t, int32(2), provider.calls.Load())
}

func TestCache_CallerCancellation(t *testing.T) {
	provider := &countingProvider{release: make(chan struct{})}
	cache := New(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Token(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The shared exchange keeps running and still fills the cache.
	close(provider.release)
	require.Eventually(t, func() bool {
		_, ok := cache.Cached()
		return ok
	}, time.Second, time.Millisecond)
}

func TestCache_Prime(t *testing.T) {
	failing := New(&countingProvider{err: errors.New("bad creds")})
	require.Error(t, failing.Prime(context.Background()))
	_, ok := failing.Cached()
	require.False(t, ok)

	provider := &countingProvider{}
	primed := New(provider)
	require.NoError(t, primed.Prime(context.Background()))

	_, err := primed.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), provider.calls.Load())
}
