// Package measure reduces an ordered tuple of Hessian eigenvalues to a single
// structure response.
//
// Measures are pure functions of the eigenvalues and a Parameters value. Each
// measure declares the eigenvalue order it expects; the eigen analysis that
// feeds it must use the same order because the formulas are not order
// invariant.
package measure

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// EigenValueOrder is the ordering applied to eigenvalues before a measure sees them.
type EigenValueOrder int

const (
	// OrderByValue sorts ascending by signed value.
	OrderByValue EigenValueOrder = iota

	// OrderByMagnitude sorts ascending by absolute value.
	OrderByMagnitude

	// DoNotOrder keeps whatever order the decomposition produced.
	DoNotOrder
)

// String returns a readable name for the order.
func (o EigenValueOrder) String() string {
	switch o {
	case OrderByValue:
		return "by-value"
	case OrderByMagnitude:
		return "by-magnitude"
	case DoNotOrder:
		return "unordered"
	default:
		return fmt.Sprintf("EigenValueOrder(%d)", int(o))
	}
}

// Sort reorders eigenvalues in place according to o.
func (o EigenValueOrder) Sort(eigenvalues []float64) {
	switch o {
	case OrderByValue:
		sort.Float64s(eigenvalues)
	case OrderByMagnitude:
		sort.SliceStable(eigenvalues, func(i, j int) bool {
			return math.Abs(eigenvalues[i]) < math.Abs(eigenvalues[j])
		})
	}
}

// Parameters holds the tunable constants of a measure.
type Parameters struct {
	// Alpha weighs the plate/sheet ratio term
	Alpha float64

	// Beta weighs the blob ratio term
	Beta float64

	// C weighs the structure strength (Frobenius norm) term
	C float64
}

// DefaultParameters returns alpha = beta = c = 0.5.
func DefaultParameters() Parameters {
	return Parameters{Alpha: 0.5, Beta: 0.5, C: 0.5}
}

// Measure maps one eigenvalue tuple to a scalar response.
type Measure interface {
	// Evaluate returns the response for eigenvalues ordered as EigenValueOrder says.
	Evaluate(eigenvalues []float64, p Parameters) float64

	// EigenValueOrder is the order Evaluate expects.
	EigenValueOrder() EigenValueOrder

	// Name identifies the measure in logs and configuration.
	Name() string
}

// FrobeniusNorm returns sqrt(sum(λ²)).
func FrobeniusNorm(eigenvalues []float64) float64 {
	if len(eigenvalues) == 0 {
		return 0
	}
	return floats.Norm(eigenvalues, 2)
}

// Kind names a measure in configuration.
type Kind string

const (
	KindDescoteaux Kind = "descoteaux"
	KindFrangi     Kind = "frangi"
)

// ParseKind validates a configuration value.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindDescoteaux, KindFrangi:
		return k, nil
	default:
		return "", fmt.Errorf("unknown measure %q (must be %s or %s)", s, KindDescoteaux, KindFrangi)
	}
}

// New constructs the measure named by kind.
func New(kind Kind, enhanceBrightObjects bool) (Measure, error) {
	switch kind {
	case KindDescoteaux:
		return Descoteaux{EnhanceBrightObjects: enhanceBrightObjects}, nil
	case KindFrangi:
		return Frangi{EnhanceBrightObjects: enhanceBrightObjects}, nil
	default:
		return nil, fmt.Errorf("unknown measure %q", kind)
	}
}

// gaussianTerm returns exp(-r²/(2w²)), treating w == 0 as a step at r == 0.
func gaussianTerm(r, w float64) float64 {
	if w == 0 {
		if r == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(-(r * r) / (2 * w * w))
}

// magnitudes returns the absolute values of a magnitude-ordered tuple.
func magnitudes(eigenvalues []float64, dst []float64) []float64 {
	for i, v := range eigenvalues {
		dst[i] = math.Abs(v)
	}
	return dst
}

// polarityMatches reports whether an eigenvalue has the sign produced by the
// requested object polarity. Bright structures on a dark background have
// negative curvature across them.
func polarityMatches(lambda float64, bright bool) bool {
	if bright {
		return lambda < 0
	}
	return lambda > 0
}
