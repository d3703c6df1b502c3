package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoardPlacesDistinctMinesInRange(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		mines, err := NewBoard(4, 3)
		require.NoError(t, err)
		require.Len(t, mines, 3)

		seen := make(map[int]bool)
		for _, cell := range mines {
			assert.GreaterOrEqual(t, cell, 0)
			assert.Less(t, cell, 16)
			assert.False(t, seen[cell], "duplicate mine at cell %d", cell)
			seen[cell] = true
		}
	}
}

func TestNewBoardCoversWholeGrid(t *testing.T) {
	// Over enough boards every cell should host a mine at least once;
	// anything else means the placement is not uniform over the grid.
	hit := make(map[int]bool)
	for trial := 0; trial < 500; trial++ {
		mines, err := NewBoard(4, 5)
		require.NoError(t, err)
		for _, cell := range mines {
			hit[cell] = true
		}
	}
	assert.Len(t, hit, 16)
}

func TestNewBoardRejectsBadConfigurations(t *testing.T) {
	for _, mineCount := range []int{-1, 0, 16, 17} {
		_, err := NewBoard(4, mineCount)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "mine count %d", mineCount)
	}
}

func TestNewBoardNearlyFullGrid(t *testing.T) {
	mines, err := NewBoard(4, 15)
	require.NoError(t, err)
	assert.Len(t, mines, 15)
}
