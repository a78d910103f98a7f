package evalcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := New[string](10, time.Minute)
	calls := 0

	v, cached, err := c.GetOrCompute("k1", func() (string, error) {
		calls++
		return "decision-1", nil
	})
	require.NoError(err)
	assert.False(cached)
	assert.Equal("decision-1", v)

	v, cached, err = c.GetOrCompute("k1", func() (string, error) {
		calls++
		return "should-not-run", nil
	})
	require.NoError(err)
	assert.True(cached)
	assert.Equal("decision-1", v)
	assert.Equal(1, calls)
	assert.Equal(1, c.Len())
}

func TestSingleFlight(t *testing.T) {
	assert := assert.New(t)

	c := New[int](10, time.Minute)
	var computes atomic.Int32
	gate := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrCompute("cold", func() (int, error) {
				computes.Add(1)
				<-gate
				return 42, nil
			})
			assert.NoError(err)
			results[i] = v
		}(i)
	}
	// let the goroutines pile up on the flight, then release it
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(int32(1), computes.Load())
	for _, v := range results {
		assert.Equal(42, v)
	}
}

func TestErrorsNotCached(t *testing.T) {
	assert := assert.New(t)

	c := New[string](10, time.Minute)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute("k", func() (string, error) { return "", boom })
	assert.ErrorIs(err, boom)
	assert.Equal(0, c.Len())

	v, cached, err := c.GetOrCompute("k", func() (string, error) { return "ok", nil })
	assert.NoError(err)
	assert.False(cached)
	assert.Equal("ok", v)
}

func TestTTLExpiry(t *testing.T) {
	assert := assert.New(t)

	c := New[string](10, 30*time.Millisecond)
	_, _, err := c.GetOrCompute("k", func() (string, error) { return "v", nil })
	assert.NoError(err)

	_, ok := c.Get("k")
	assert.True(ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(ok)
}

func TestLRUBound(t *testing.T) {
	assert := assert.New(t)

	c := New[int](3, time.Minute)
	for i, k := range []string{"a", "b", "c", "d"} {
		_, _, err := c.GetOrCompute(k, func() (int, error) { return i, nil })
		assert.NoError(err)
	}
	assert.Equal(3, c.Len())
	_, ok := c.Get("a")
	assert.False(ok)
	_, ok = c.Get("d")
	assert.True(ok)
}

func TestFlushAndHitRate(t *testing.T) {
	assert := assert.New(t)

	c := New[string](10, time.Minute)
	_, _, _ = c.GetOrCompute("k", func() (string, error) { return "v", nil })
	_, _, _ = c.GetOrCompute("k", func() (string, error) { return "v", nil })
	assert.InDelta(0.5, c.HitRate(), 0.001)

	c.Flush()
	assert.Equal(0, c.Len())
	_, ok := c.Get("k")
	assert.False(ok)
}
