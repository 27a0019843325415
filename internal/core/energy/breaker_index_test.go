package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerIndexAssign(t *testing.T) {
	idx := NewBreakerIndex()
	idx.Assign("outlet-1", "b1")
	idx.Assign("outlet-2", "b1")

	breaker, ok := idx.BreakerFor("outlet-1")
	assert.True(t, ok)
	assert.Equal(t, "b1", breaker)
	assert.Equal(t, []string{"outlet-1", "outlet-2"}, idx.Outlets("b1"))
}

func TestBreakerIndexReassignRemovesPrior(t *testing.T) {
	idx := NewBreakerIndex()
	idx.Assign("outlet-1", "b1")
	idx.Assign("outlet-1", "b2")

	breaker, ok := idx.BreakerFor("outlet-1")
	assert.True(t, ok)
	assert.Equal(t, "b2", breaker)
	assert.NotContains(t, idx.Outlets("b1"), "outlet-1")
	assert.Equal(t, []string{"outlet-1"}, idx.Outlets("b2"))
}

func TestBreakerIndexRemove(t *testing.T) {
	idx := NewBreakerIndex()
	idx.Assign("outlet-1", "b1")
	idx.Remove("outlet-1")

	_, ok := idx.BreakerFor("outlet-1")
	assert.False(t, ok)
	assert.Empty(t, idx.Outlets("b1"))

	// removing an unknown outlet is a no-op
	idx.Remove("outlet-9")
}

func TestBuildBreakerIndex(t *testing.T) {
	lines := []BreakerLine{
		{ID: "b1", OutletIDs: []string{"o1", "o2"}},
		{ID: "b2", OutletIDs: []string{"o3"}},
	}
	idx := BuildBreakerIndex(lines)

	breaker, ok := idx.BreakerFor("o2")
	assert.True(t, ok)
	assert.Equal(t, "b1", breaker)
	assert.Equal(t, []string{"o3"}, idx.Outlets("b2"))
}
