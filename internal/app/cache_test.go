package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"seedfinder/internal/domain"
)

func TestAreaCache(t *testing.T) {
	c := NewAreaCache()
	_, ok := c.Get("missing")
	assert.False(t, ok)

	grid := domain.ColorGrid{{1, 2}, {3, 4}}
	c.Put("k", grid)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, grid, got)
	assert.Equal(t, 1, c.Len())

	c.Put("k", grid)
	assert.Equal(t, 1, c.Len())
}
