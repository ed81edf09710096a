package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"unidata-cache/internal/cache"
	"unidata-cache/internal/cache/l1"
	"unidata-cache/internal/cache/multi"
	"unidata-cache/internal/config"
	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/interfaces/mock"
	"unidata-cache/internal/models"
)

const dayTTL = 86400 * time.Second

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingUpstream answers every Fetch with body after waiting for gate (if set)
type countingUpstream struct {
	calls int32
	body  string
	gate  func(call int32)
}

func (u *countingUpstream) Fetch(ctx context.Context, country string) (*models.UpstreamResponse, error) {
	n := atomic.AddInt32(&u.calls, 1)
	if u.gate != nil {
		u.gate(n)
	}
	return &models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(u.body)}, nil
}

func newMockedResolver(t *testing.T, opts Options) (*Resolver, *mock.MockCache, *mock.MockUpstreamClient) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockCache(ctrl)
	upstream := mock.NewMockUpstreamClient(ctrl)
	levels := []multi.Level{{Name: models.CacheLevelL2, Cache: store}}

	if opts.TTL == 0 {
		opts.TTL = dayTTL
	}
	resolver := NewResolver(
		multi.NewMultiCache(levels, zap.NewNop(), false),
		upstream,
		cache.NewKeyBuilder(""),
		opts,
		zaptest.NewLogger(t),
	)
	return resolver, store, upstream
}

func newInMemoryResolver(t *testing.T, upstream interfaces.UpstreamClient, opts Options, clock *testClock) *Resolver {
	t.Helper()
	var bcOpts []l1.Option
	if clock != nil {
		bcOpts = append(bcOpts, l1.WithClock(clock.Now))
	}
	store, err := l1.NewBigCache(&config.L1Config{Enabled: true, Size: 10}, 48*time.Hour, zap.NewNop(), bcOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if opts.TTL == 0 {
		opts.TTL = dayTTL
	}
	levels := []multi.Level{{Name: models.CacheLevelL1, Cache: store}}
	return NewResolver(multi.NewMultiCache(levels, zap.NewNop(), false), upstream, cache.NewKeyBuilder(""), opts, zaptest.NewLogger(t))
}

func TestResolver_CacheHit(t *testing.T) {
	resolver, store, _ := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "usa").
		Return(&models.CacheEntry{Data: []byte(`[{"name":"X"}]`)}, true, nil)
	// no upstream expectations: any Fetch fails the test

	result, err := resolver.Resolve(context.Background(), "usa")

	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "X"}}, result.Data)
	assert.Equal(t, models.CacheStatusHit, result.Status)
	assert.Equal(t, models.CacheLevelL2, result.Level)
}

func TestResolver_CacheMissPopulatesCache(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), "canada").Return(nil, false, nil),
		upstream.EXPECT().Fetch(gomock.Any(), "canada").
			Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[{"name":"Y"}]`)}, nil).
			Times(1),
		store.EXPECT().Set(gomock.Any(), "canada", []byte(`[{"name":"Y"}]`), dayTTL).Return(nil),
	)

	result, err := resolver.Resolve(context.Background(), "canada")

	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Y"}}, result.Data)
	assert.Equal(t, models.CacheStatusMiss, result.Status)
	assert.Equal(t, models.CacheLevelMiss, result.Level)
}

func TestResolver_CorruptedCache(t *testing.T) {
	resolver, store, _ := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "uk").
		Return(&models.CacheEntry{Data: []byte("not json")}, true, nil)
	// neither upstream nor Delete may be called

	result, err := resolver.Resolve(context.Background(), "uk")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrCacheDecode)
	assert.NotErrorIs(t, err, ErrUpstreamDecode)
}

func TestResolver_CorruptedCache_Purged(t *testing.T) {
	resolver, store, _ := newMockedResolver(t, Options{PurgeCorrupt: true})

	store.EXPECT().Get(gomock.Any(), "uk").
		Return(&models.CacheEntry{Data: []byte("not json")}, true, nil)
	store.EXPECT().Delete(gomock.Any(), "uk").Return(nil).Times(1)

	_, err := resolver.Resolve(context.Background(), "uk")

	assert.ErrorIs(t, err, ErrCacheDecode)
}

func TestResolver_CorruptedUpstream(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "fr").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "fr").
		Return(&models.UpstreamResponse{StatusCode: http.StatusBadGateway, Body: []byte("<html>502</html>")}, nil)
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := resolver.Resolve(context.Background(), "fr")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUpstreamDecode)
	assert.NotErrorIs(t, err, ErrCacheDecode)
}

func TestResolver_NonSuccessJSONIsCached(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "atlantis").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "atlantis").
		Return(&models.UpstreamResponse{StatusCode: http.StatusNotFound, Body: []byte(`{"error":"unknown country"}`)}, nil)
	store.EXPECT().Set(gomock.Any(), "atlantis", []byte(`{"error":"unknown country"}`), dayTTL).Return(nil)

	result, err := resolver.Resolve(context.Background(), "atlantis")

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"error": "unknown country"}, result.Data)
}

func TestResolver_StoresUpstreamTextUnescaped(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "usa").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "usa").
		Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[{"name":"Texas A&M University"}]`)}, nil)
	store.EXPECT().Set(gomock.Any(), "usa", []byte(`[{"name":"Texas A&M University"}]`), dayTTL).Return(nil)

	_, err := resolver.Resolve(context.Background(), "usa")

	require.NoError(t, err)
}

func TestResolver_UpstreamBodyWithByteOrderMark(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "nz").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "nz").
		Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte("\ufeff[{\"name\":\"Z\"}]")}, nil)
	store.EXPECT().Set(gomock.Any(), "nz", []byte(`[{"name":"Z"}]`), dayTTL).Return(nil)

	result, err := resolver.Resolve(context.Background(), "nz")

	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Z"}}, result.Data)
}

func TestResolver_EmptyListIsCached(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "").
		Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil)
	store.EXPECT().Set(gomock.Any(), "", []byte(`[]`), dayTTL).Return(nil)

	result, err := resolver.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, result.Data)
}

func TestResolver_EmptyCachedValueIsMiss(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "usa").Return(&models.CacheEntry{Data: []byte{}}, true, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "usa").
		Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil)
	store.EXPECT().Set(gomock.Any(), "usa", []byte(`[]`), dayTTL).Return(nil)

	result, err := resolver.Resolve(context.Background(), "usa")

	require.NoError(t, err)
	assert.Equal(t, models.CacheStatusMiss, result.Status)
}

func TestResolver_StoreWriteFailureStillReturnsData(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	store.EXPECT().Get(gomock.Any(), "canada").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "canada").
		Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[{"name":"Y"}]`)}, nil)
	store.EXPECT().Set(gomock.Any(), "canada", gomock.Any(), dayTTL).Return(errors.New("READONLY"))

	result, err := resolver.Resolve(context.Background(), "canada")

	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Y"}}, result.Data)
}

func TestResolver_StoreReadFailure(t *testing.T) {
	resolver, store, _ := newMockedResolver(t, Options{})

	storeErr := errors.New("connection refused")
	store.EXPECT().Get(gomock.Any(), "usa").Return(nil, false, storeErr)

	_, err := resolver.Resolve(context.Background(), "usa")

	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrCacheDecode)
}

func TestResolver_UpstreamFailure(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	fetchErr := errors.New("dial tcp: no such host")
	store.EXPECT().Get(gomock.Any(), "usa").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "usa").Return(nil, fetchErr)
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := resolver.Resolve(context.Background(), "usa")

	assert.ErrorIs(t, err, fetchErr)
	assert.NotErrorIs(t, err, ErrUpstreamDecode)
}

func TestResolver_IgnoresCallerCancellation(t *testing.T) {
	resolver, store, upstream := newMockedResolver(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store.EXPECT().Get(gomock.Any(), "usa").Return(nil, false, nil)
	upstream.EXPECT().Fetch(gomock.Any(), "usa").DoAndReturn(
		func(ctx context.Context, country string) (*models.UpstreamResponse, error) {
			assert.NoError(t, ctx.Err(), "upstream call must not observe the caller's cancellation")
			return &models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
		},
	)
	store.EXPECT().Set(gomock.Any(), "usa", gomock.Any(), dayTTL).Return(nil)

	_, err := resolver.Resolve(ctx, "usa")

	assert.NoError(t, err)
}

func TestResolver_KeyPrefix(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockCache(ctrl)
	upstream := mock.NewMockUpstreamClient(ctrl)
	levels := []multi.Level{{Name: models.CacheLevelL2, Cache: store}}
	resolver := NewResolver(multi.NewMultiCache(levels, zap.NewNop(), false), upstream,
		cache.NewKeyBuilder("unidata:"), Options{TTL: dayTTL}, zap.NewNop())

	store.EXPECT().Get(gomock.Any(), "unidata:canada").Return(nil, false, nil)
	// the upstream still receives the bare country
	upstream.EXPECT().Fetch(gomock.Any(), "canada").
		Return(&models.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil)
	store.EXPECT().Set(gomock.Any(), "unidata:canada", []byte(`[]`), dayTTL).Return(nil)

	_, err := resolver.Resolve(context.Background(), "canada")

	assert.NoError(t, err)
}

func TestResolver_IdempotentReRead(t *testing.T) {
	upstream := &countingUpstream{body: `[{"name":"Y","domains":["y.edu"]}]`}
	resolver := newInMemoryResolver(t, upstream, Options{}, nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "canada")
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, "canada")
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, models.CacheStatusMiss, first.Status)
	assert.Equal(t, models.CacheStatusHit, second.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))
}

func TestResolver_ExpirationBoundary(t *testing.T) {
	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	upstream := &countingUpstream{body: `[{"name":"Y"}]`}
	resolver := newInMemoryResolver(t, upstream, Options{}, clock)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "canada")
	require.NoError(t, err)

	clock.Advance(86399 * time.Second)
	result, err := resolver.Resolve(ctx, "canada")
	require.NoError(t, err)
	assert.Equal(t, models.CacheStatusHit, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))

	clock.Advance(time.Second)
	result, err = resolver.Resolve(ctx, "canada")
	require.NoError(t, err)
	assert.Equal(t, models.CacheStatusMiss, result.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&upstream.calls))
}

func TestResolver_ConcurrentMissesEachFetch(t *testing.T) {
	const callers = 4
	var arrived sync.WaitGroup
	arrived.Add(callers)

	upstream := &countingUpstream{
		body: `[]`,
		gate: func(int32) {
			// hold every fetch until all callers are inside the upstream call
			arrived.Done()
			arrived.Wait()
		},
	}
	resolver := newInMemoryResolver(t, upstream, Options{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resolver.Resolve(context.Background(), "usa")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(callers), atomic.LoadInt32(&upstream.calls))
}

func TestResolver_SingleFlightCollapsesMisses(t *testing.T) {
	const callers = 8
	release := make(chan struct{})
	upstream := &countingUpstream{
		body: `[{"name":"X"}]`,
		gate: func(int32) { <-release },
	}
	resolver := newInMemoryResolver(t, upstream, Options{SingleFlight: true}, nil)

	var wg sync.WaitGroup
	results := make([]*models.LookupResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := resolver.Resolve(context.Background(), "usa")
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&upstream.calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond) // let the remaining callers join the flight
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))
	for _, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, []interface{}{map[string]interface{}{"name": "X"}}, result.Data)
	}
}
