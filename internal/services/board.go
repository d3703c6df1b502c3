package services

import (
	"fmt"
	"math/rand/v2"
)

// NewBoard picks mineCount distinct cells uniformly at random from a
// gridSize x gridSize grid. Uniform fairness is the requirement here, not
// unpredictability; the layout never leaves the server until the game ends.
func NewBoard(gridSize, mineCount int) ([]int, error) {
	cells := gridSize * gridSize
	if mineCount <= 0 || mineCount >= cells {
		return nil, fmt.Errorf("%w: %d mines on a %dx%d grid", ErrInvalidConfiguration, mineCount, gridSize, gridSize)
	}

	mines := make([]int, mineCount)
	copy(mines, rand.Perm(cells)[:mineCount])
	return mines, nil
}
