package cache

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_keyFor_IgnoresParamOrder(t *testing.T) {
	a, err := url.ParseQuery("search=go&page=2&ordering=title_asc")
	require.NoError(t, err)
	b, err := url.ParseQuery("ordering=title_asc&search=go&page=2")
	require.NoError(t, err)

	assert.Equal(t, keyFor(3, a), keyFor(3, b))
}

func Test_keyFor_VersionAndQueryChangeKey(t *testing.T) {
	q := url.Values{"search": {"go"}}

	k := keyFor(1, q)

	assert.True(t, strings.HasPrefix(k, "catalog:books:v1:"))
	assert.NotEqual(t, k, keyFor(2, q))
	assert.NotEqual(t, k, keyFor(1, url.Values{"search": {"rust"}}))
}

func Test_Catalog_NilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(nil, 0)

	key, err := c.Key(ctx, url.Values{"search": {"go"}})
	require.NoError(t, err)
	assert.Empty(t, key)

	var dst map[string]any
	hit, err := c.Get(ctx, "catalog:books:v0:x", &dst)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, c.Set(ctx, "catalog:books:v0:x", map[string]int{"count": 1}))
	assert.NoError(t, c.Bump(ctx))
	assert.False(t, c.Enabled())
}

func Test_Catalog_NilReceiver(t *testing.T) {
	var c *Catalog

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Bump(context.Background()))
}
