package llm

import (
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Reply delay model: a flat base plus typing time proportional to the reply
// length, reading time proportional to the previous reply length, and a
// gamma-distributed thinking pause. All terms are clamped non-negative so the
// delay can never undercut the base.
const (
	delayBase        = 1.0
	perCharMean      = 0.3
	perCharSigma     = 0.03
	perPrevCharMean  = 0.03
	perPrevCharSigma = 0.003
	thinkGammaShape  = 2.5
	thinkGammaRate   = 4.0
)

// ReplyDelay returns the artificial pause before publishing an AI reply of
// replyLen characters, where prevLen is the length of the AI's previous
// reply in this conversation (0 for the first).
func ReplyDelay(replyLen, prevLen int) time.Duration {
	typing := distuv.Normal{Mu: perCharMean, Sigma: perCharSigma}.Rand() * float64(replyLen)
	reading := distuv.Normal{Mu: perPrevCharMean, Sigma: perPrevCharSigma}.Rand() * float64(prevLen)
	thinking := distuv.Gamma{Alpha: thinkGammaShape, Beta: thinkGammaRate}.Rand()

	seconds := delayBase + clamp(typing) + clamp(reading) + clamp(thinking)
	return time.Duration(seconds * float64(time.Second))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
