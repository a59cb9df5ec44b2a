package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcEloEvenMatch(t *testing.T) {
	assert.Equal(t, 1016, CalcElo(1000, 1000, true))
	assert.Equal(t, 984, CalcElo(1000, 1000, false))
}

func TestCalcEloUnderdogWin(t *testing.T) {
	// beating a much stronger opponent pays close to the full K
	got := CalcElo(1000, 1400, true)
	assert.Greater(t, got, 1024)
	assert.LessOrEqual(t, got, 1032)
}

func TestCalcEloFavouriteLoss(t *testing.T) {
	got := CalcElo(1400, 1000, false)
	assert.Less(t, got, 1376)
	assert.GreaterOrEqual(t, got, 1368)
}

func TestCalcEloZeroSumWhenEqual(t *testing.T) {
	winner := CalcElo(1000, 1000, true)
	loser := CalcElo(1000, 1000, false)
	assert.Equal(t, 2000, winner+loser)
}
