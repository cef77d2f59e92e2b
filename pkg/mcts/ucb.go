package mcts

import "math"

// UCB1-TUNED selection constants (spec.md 4.4, "UCB1-TUNED selection").
const (
	ucbK = 1000.0 // rate-bonus equivalence: parent visits at which the bonus has fallen to 1/sqrt(2) of its start
	ucbW = 0.35   // rate-bonus blend weight
	fpu  = 5.0    // first-play-urgency: unvisited children sort ahead of explored losers
)

// SelectChild picks the highest-UCB1-TUNED child of a node among its
// currently exposed children (progressive widening already bounds how many
// that is). parentVisits is the owning node's Visits(); passed in separately
// so callers that already hold it avoid a second atomic load. Children flagged
// as losing ladders are never selected.
func SelectChild(children []*Child, parentVisits int64) *Child {
	var best *Child
	bestScore := math.Inf(-1)
	for _, c := range children {
		if c.Ladder {
			continue // reads out as a losing ladder for the mover; never worth selecting
		}
		score := ucbScore(c, parentVisits)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// ucbScore evaluates one edge:
//
//	ucb = p + sqrt(log(N+1)/n * min(0.25, p - p^2 + sqrt(2*log(N+1)/n)))
//	      + w * sqrt(K/(N+K)) * rate
//
// where p is the edge's observed win rate, N the parent's visits, n the
// edge's visits, and rate the policy prior. The min(0.25, ...) term is
// UCB1-TUNED's variance bound with a Bernoulli ceiling; the trailing term is
// the rate bonus that fades as the parent accumulates real evidence
// (spec.md 4.4).
func ucbScore(c *Child, parentVisits int64) float64 {
	n := c.moveCount.Load()
	if n == 0 {
		// Unvisited: rank by prior alone, offset by FPU so a promising-but-untried
		// move is preferred over an explored move that is already known bad.
		return fpu + c.Prior
	}

	p := c.wins.Load() / float64(n)
	logN := math.Log(float64(parentVisits + 1))
	variance := p - p*p + math.Sqrt(2*logN/float64(n))
	explore := math.Sqrt(logN / float64(n) * math.Min(0.25, variance))
	bonus := ucbW * math.Sqrt(ucbK/(float64(parentVisits)+ucbK)) * c.Prior
	return p + explore + bonus
}
