package pmi

import "math"

// Calculator scores how strongly two dictionary ids co-occur, with additive
// smoothing on every count.
type Calculator struct {
	smoothing float64
}

// NewCalculator returns a calculator. A non-positive smoothing value means 1.
func NewCalculator(smoothing float64) *Calculator {
	if smoothing <= 0 {
		smoothing = 1
	}
	return &Calculator{smoothing: smoothing}
}

// PMI is the pointwise mutual information of a pair seen together in nAB of
// n sentences, where each member was seen in nA and nB sentences:
//
//	log((nAB+s) * n / ((nA+s) * (nB+s)))
func (c *Calculator) PMI(nAB, nA, nB, n int64) float64 {
	if n == 0 {
		return 0
	}
	s := c.smoothing
	joint := (float64(nAB) + s) * float64(n)
	marginal := (float64(nA) + s) * (float64(nB) + s)
	return math.Log(joint / marginal)
}

// NPMI scales PMI by -log P(a,b) into [-1, 1]. Pairs never seen together
// score 0.
func (c *Calculator) NPMI(nAB, nA, nB, n int64) float64 {
	if n == 0 || nAB == 0 {
		return 0
	}
	h := -math.Log((float64(nAB) + c.smoothing) / float64(n))
	if h == 0 {
		return 0
	}
	return c.PMI(nAB, nA, nB, n) / h
}
