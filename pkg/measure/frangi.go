package measure

import "math"

// Frangi is the ratio-based vesselness of Frangi et al. It expects eigenvalues
// ordered by magnitude.
//
// In three dimensions, with l_i = |λ_i|:
//
//	RA = l2 / l3
//	RB = l1 / sqrt(l2·l3)
//	S  = sqrt(Σ λ²)
//	V  = (1 - exp(-RA²/2α²)) · exp(-RB²/2β²) · (1 - exp(-S²/2c²))
//
// In two dimensions RB = l1 / l2 and the RA term is dropped. Longer tuples use
// their three largest magnitudes.
type Frangi struct {
	// EnhanceBrightObjects selects bright tubes (λ2, λ3 < 0) instead of dark ones.
	EnhanceBrightObjects bool
}

// Name implements Measure.
func (Frangi) Name() string { return string(KindFrangi) }

// EigenValueOrder implements Measure.
func (Frangi) EigenValueOrder() EigenValueOrder { return OrderByMagnitude }

// Evaluate implements Measure.
func (m Frangi) Evaluate(eigenvalues []float64, p Parameters) float64 {
	n := len(eigenvalues)
	if n < 2 {
		return 0
	}

	var buf [3]float64
	if n == 2 {
		lambda2 := eigenvalues[1]
		if lambda2 == 0 || !polarityMatches(lambda2, m.EnhanceBrightObjects) {
			return 0
		}
		l := magnitudes(eigenvalues, buf[:2])
		rB := l[0] / l[1]
		s := FrobeniusNorm(eigenvalues)
		return gaussianTerm(rB, p.Beta) * (1 - gaussianTerm(s, p.C))
	}

	lambda2, lambda3 := eigenvalues[n-2], eigenvalues[n-1]
	if lambda2 == 0 || lambda3 == 0 {
		return 0
	}
	if !polarityMatches(lambda2, m.EnhanceBrightObjects) || !polarityMatches(lambda3, m.EnhanceBrightObjects) {
		return 0
	}

	l := magnitudes(eigenvalues[n-3:], buf[:])
	rA := l[1] / l[2]
	rB := l[0] / math.Sqrt(l[1]*l[2])
	s := FrobeniusNorm(eigenvalues)

	return (1 - gaussianTerm(rA, p.Alpha)) *
		gaussianTerm(rB, p.Beta) *
		(1 - gaussianTerm(s, p.C))
}
