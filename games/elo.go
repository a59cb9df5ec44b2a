package games

import "math"

// eloK is the classic K-factor; every judged game moves a rating by at most K
const eloK = 32

// CalcElo returns the updated rating for a player with oldElo after a game
// against oppElo: expected = 1/(1+10^((opp-self)/400)), new = self + K*(score-expected)
func CalcElo(oldElo, oppElo int, win bool) int {
	expected := 1 / (1 + math.Pow(10, float64(oppElo-oldElo)/400))
	score := 0.0
	if win {
		score = 1
	}
	return int(math.Round(float64(oldElo) + eloK*(score-expected)))
}
