package measure

import "math"

// Descoteaux is the sheetness measure of Descoteaux et al., as used for
// cortical bone enhancement. It expects eigenvalues ordered by magnitude,
// |λ1| <= |λ2| <= |λ3|.
//
// With l_i = |λ_i|:
//
//	Rsheet = l2 / l3
//	Rblob  = |2·l3 - l2 - l1| / l3
//	Rnoise = sqrt(λ1² + λ2² + λ3²)
//	S      = exp(-Rsheet²/2α²) · (1 - exp(-Rblob²/2β²)) · (1 - exp(-Rnoise²/2c²))
//
// The response is zero where λ3 is zero or has the wrong sign for the
// requested polarity. Tuples shorter than three treat the missing small
// eigenvalues as zero.
type Descoteaux struct {
	// EnhanceBrightObjects selects bright sheets on a dark background (λ3 < 0)
	// instead of dark sheets (λ3 > 0).
	EnhanceBrightObjects bool
}

// Name implements Measure.
func (Descoteaux) Name() string { return string(KindDescoteaux) }

// EigenValueOrder implements Measure.
func (Descoteaux) EigenValueOrder() EigenValueOrder { return OrderByMagnitude }

// Evaluate implements Measure.
func (m Descoteaux) Evaluate(eigenvalues []float64, p Parameters) float64 {
	n := len(eigenvalues)
	if n == 0 {
		return 0
	}
	lambda3 := eigenvalues[n-1]
	l3 := math.Abs(lambda3)
	if l3 == 0 || !polarityMatches(lambda3, m.EnhanceBrightObjects) {
		return 0
	}

	var l1, l2 float64
	if n >= 2 {
		l2 = math.Abs(eigenvalues[n-2])
	}
	if n >= 3 {
		l1 = math.Abs(eigenvalues[n-3])
	}

	rSheet := l2 / l3
	rBlob := math.Abs(2*l3-l2-l1) / l3
	rNoise := FrobeniusNorm(eigenvalues)

	return gaussianTerm(rSheet, p.Alpha) *
		(1 - gaussianTerm(rBlob, p.Beta)) *
		(1 - gaussianTerm(rNoise, p.C))
}
