package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/models"
)

func sampleResult(fingerprint string) models.RawResult {
	return models.RawResult{QueryID: fingerprint, SourceName: "test-source", Content: []byte("payload")}
}

func TestCache_FetchCachesResult(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Stop()

	var calls int32
	fn := func(ctx context.Context) (models.RawResult, error) {
		atomic.AddInt32(&calls, 1)
		return sampleResult("fp-1"), nil
	}

	res1, err := c.Fetch(context.Background(), "fp-1", fn)
	require.NoError(t, err)
	res2, err := c.Fetch(context.Background(), "fp-1", fn)
	require.NoError(t, err)

	assert.Equal(t, res1, res2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_FetchCoalescesConcurrentCalls(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Stop()

	var calls int32
	fn := func(ctx context.Context) (models.RawResult, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return sampleResult("fp-concurrent"), nil
	}

	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, _ = c.Fetch(context.Background(), "fp-concurrent", fn)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(&Options{TTL: 10 * time.Millisecond, MaxEntries: 10})
	defer c.Stop()

	var calls int32
	fn := func(ctx context.Context) (models.RawResult, error) {
		atomic.AddInt32(&calls, 1)
		return sampleResult("fp-ttl"), nil
	}

	_, err := c.Fetch(context.Background(), "fp-ttl", fn)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = c.Fetch(context.Background(), "fp-ttl", fn)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_EvictsLRUWhenFull(t *testing.T) {
	c := New(&Options{TTL: time.Hour, MaxEntries: 2})
	defer c.Stop()

	noop := func(fp string) func(context.Context) (models.RawResult, error) {
		return func(ctx context.Context) (models.RawResult, error) { return sampleResult(fp), nil }
	}

	_, err := c.Fetch(context.Background(), "a", noop("a"))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "b", noop("b"))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "c", noop("c"))
	require.NoError(t, err)

	stats := c.Stats()
	assert.LessOrEqual(t, stats["entries"], 2)
}

func TestCache_Invalidate(t *testing.T) {
	c := New(DefaultOptions())
	defer c.Stop()

	_, err := c.Fetch(context.Background(), "fp-inv", func(ctx context.Context) (models.RawResult, error) {
		return sampleResult("fp-inv"), nil
	})
	require.NoError(t, err)

	c.Invalidate("fp-inv")
	_, ok := c.getLocal("fp-inv")
	assert.False(t, ok)
}

type mirrorStub struct {
	getErr error
}

func (m *mirrorStub) Get(ctx context.Context, fingerprint string) (models.RawResult, bool, error) {
	if m.getErr != nil {
		return models.RawResult{}, false, m.getErr
	}
	return models.RawResult{}, false, nil
}

func (m *mirrorStub) Put(ctx context.Context, fingerprint string, result models.RawResult, ttl time.Duration) error {
	return nil
}

func TestCache_MirrorErrorDegradesSilently(t *testing.T) {
	c := New(&Options{TTL: time.Hour, MaxEntries: 10, Mirror: &mirrorStub{getErr: assert.AnError}})
	defer c.Stop()

	res, err := c.Fetch(context.Background(), "fp-mirror", func(ctx context.Context) (models.RawResult, error) {
		return sampleResult("fp-mirror"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fp-mirror", res.QueryID)
}
