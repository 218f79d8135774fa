package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"seedfinder/internal/domain"
)

func TestWriteGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area.txt")
	req := domain.AreaRequest{Version: "1.20", Seed: "123", WidthX: 2, WidthY: 2, YHeight: 64}
	grid := domain.ColorGrid{
		{0x8DB360, 0x000070},
		{0xFFFFFF, 0x000000},
	}

	require.NoError(t, NewTXTGridWriter(zaptest.NewLogger(t)).WriteGrid(path, req, grid))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# 1.20-123-0-0-2-2-0-64\n8DB360\t000070\nFFFFFF\t000000\n", string(data))
}

func TestWriteGridBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "area.txt")
	err := NewTXTGridWriter(zaptest.NewLogger(t)).WriteGrid(path, domain.AreaRequest{}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
