package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-os/arxquery/internal/plan"
)

func TestPutGetHitMiss(t *testing.T) {
	c := New(10, "test", nil)
	p := &plan.Plan{}
	_, ok := c.Get("k1")
	require.False(t, ok, "expected miss on empty cache")

	c.Put("k1", p)
	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Same(t, p, got, "expected hit returning the same plan pointer")

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestEvictionAtCapacityRemovesOldestQuarter(t *testing.T) {
	c := New(8, "test", nil)
	for i := 0; i < 8; i++ {
		c.Put(fmt.Sprintf("k%d", i), &plan.Plan{})
	}
	require.Equal(t, 8, c.Stats().Size, "expected full cache")

	// Ninth insert should trigger eviction of the oldest 2 entries (ceil(8/4)).
	c.Put("k8", &plan.Plan{})
	_, ok := c.Get("k0")
	assert.False(t, ok, "k0 (oldest) should have been evicted")
	_, ok = c.Get("k1")
	assert.False(t, ok, "k1 (second oldest) should have been evicted")
	_, ok = c.Get("k8")
	assert.True(t, ok, "newly inserted k8 should be present")
	assert.Equal(t, 7, c.Stats().Size, "want 8-2+1")
}

func TestClear(t *testing.T) {
	c := New(4, "test", nil)
	c.Put("a", &plan.Plan{})
	c.Put("b", &plan.Plan{})
	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get("a")
	assert.False(t, ok, "expected miss after Clear")
}

func TestPutExistingKeyIsNoOp(t *testing.T) {
	c := New(4, "test", nil)
	p1 := &plan.Plan{Limit: 1}
	p2 := &plan.Plan{Limit: 2}
	c.Put("k", p1)
	c.Put("k", p2)
	got, _ := c.Get("k")
	assert.Same(t, p1, got, "re-inserting an existing key should not replace the cached plan")
}
