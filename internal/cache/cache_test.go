package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Status   string
	Category *string
	Page     int
}

func ptr(s string) *string { return &s }

func newCache(t *testing.T, size int) *Cache {
	t.Helper()
	c, err := New(size, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func mustKey(t *testing.T, kind Kind, p any) Key {
	t.Helper()
	k, err := NewKey("acme", kind, p)
	require.NoError(t, err)
	return k
}

func TestNewKey(t *testing.T) {
	a := mustKey(t, KindList, params{Status: "late", Category: ptr("x")})
	b := mustKey(t, KindList, params{Status: "late", Category: ptr("x")})
	assert.Equal(t, a, b, "equal params hash equally")

	uncategorized := mustKey(t, KindList, params{Category: ptr("")})
	anyCategory := mustKey(t, KindList, params{})
	assert.NotEqual(t, uncategorized, anyCategory)

	other := mustKey(t, KindCountStatus, params{Status: "late", Category: ptr("x")})
	assert.NotEqual(t, a.Tag, other.Tag)
}

func TestInvalidate_CoarseTag(t *testing.T) {
	c := newCache(t, 16)

	listA := mustKey(t, KindList, params{Status: "late"})
	listB := mustKey(t, KindList, params{Status: "completed"})
	counts := mustKey(t, KindCountStatus, params{})
	otherTenant, err := NewKey("globex", KindList, params{Status: "late"})
	require.NoError(t, err)

	for _, k := range []Key{listA, listB, counts, otherTenant} {
		c.Put(k, "v", c.Generation(k.Tag))
	}

	n := c.Invalidate(Tag{Tenant: "acme", Kind: KindList})
	assert.Equal(t, 2, n, "every variant of the tag")

	for _, k := range []Key{listA, listB} {
		e, ok := c.Get(k)
		require.True(t, ok)
		assert.True(t, e.Stale)
		assert.Equal(t, "v", e.Value, "stale entries keep their value")
	}
	for _, k := range []Key{counts, otherTenant} {
		e, _ := c.Get(k)
		assert.False(t, e.Stale)
	}
}

func TestPut_AfterInvalidationIsStale(t *testing.T) {
	c := newCache(t, 4)
	k := mustKey(t, KindList, params{})

	gen := c.Generation(k.Tag)
	c.Invalidate(k.Tag)
	c.Put(k, "in flight", gen)

	e, ok := c.Get(k)
	require.True(t, ok)
	assert.True(t, e.Stale)
}

func TestEvictionMaintainsTagIndex(t *testing.T) {
	c := newCache(t, 2)
	tag := Tag{Tenant: "acme", Kind: KindList}

	for i := 1; i <= 3; i++ {
		c.Put(mustKey(t, KindList, params{Page: i}), i, 0)
	}
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.Variants(tag))

	c.Purge()
	assert.Equal(t, 0, c.Variants(tag))
}

func TestView_Load(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 8)
	v := NewView[int](c)
	k := mustKey(t, KindCountStatus, params{})

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls * 10, nil
	}

	res, err := v.Load(ctx, k, fetch)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Value)
	assert.False(t, res.Cached)

	res, err = v.Load(ctx, k, fetch)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Value)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, calls)

	c.Invalidate(k.Tag)
	res, err = v.Load(ctx, k, fetch)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Value)
	assert.Equal(t, 2, calls)
}

func TestView_FailureKeepsLastKnownGood(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 8)
	v := NewView[string](c)
	k := mustKey(t, KindList, params{})

	_, err := v.Load(ctx, k, func(context.Context) (string, error) { return "good", nil })
	require.NoError(t, err)
	c.Invalidate(k.Tag)

	boom := errors.New("boom")
	res, err := v.Load(ctx, k, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "good", res.Value)
	assert.True(t, res.Stale)

	empty := mustKey(t, KindList, params{Page: 2})
	res, err = v.Load(ctx, empty, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Value)
}

func TestView_DropsSupersededResponse(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 8)
	v := NewView[string](c)
	first := mustKey(t, KindList, params{Status: "late"})
	second := mustKey(t, KindList, params{Status: "completed"})

	res, err := v.Load(ctx, first, func(ctx context.Context) (string, error) {
		// The filter changes while the first request is in flight.
		inner, err := v.Load(ctx, second, func(context.Context) (string, error) { return "completed rows", nil })
		require.NoError(t, err)
		assert.Equal(t, "completed rows", inner.Value)
		return "late rows", nil
	})
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Empty(t, res.Value)

	_, ok := c.Get(first)
	assert.False(t, ok, "superseded responses are not cached")
	assert.Equal(t, second, v.Current())
}
