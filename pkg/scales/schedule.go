// Package scales generates the ascending list of scales (Gaussian sigmas in
// physical units) a multi-scale filter is evaluated at.
package scales

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidArgument is returned for schedule parameters that cannot produce
// a scale list.
var ErrInvalidArgument = errors.New("invalid argument")

// minimumStep keeps consecutive scales apart when min and max are almost equal.
const minimumStep = 1e-10

// StepMethod selects how scales are spaced between the minimum and maximum.
type StepMethod int

const (
	// Equispaced places scales at a constant distance.
	Equispaced StepMethod = iota

	// Logarithmic places scales at a constant ratio.
	Logarithmic
)

// String returns the configuration name of the method.
func (m StepMethod) String() string {
	switch m {
	case Equispaced:
		return "equispaced"
	case Logarithmic:
		return "logarithmic"
	default:
		return fmt.Sprintf("StepMethod(%d)", int(m))
	}
}

// ParseStepMethod converts a configuration value to a StepMethod.
func ParseStepMethod(s string) (StepMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equispaced", "linear":
		return Equispaced, nil
	case "logarithmic", "log":
		return Logarithmic, nil
	default:
		return 0, fmt.Errorf("%w: unknown step method %q", ErrInvalidArgument, s)
	}
}

// Generate returns steps scales between minimum and maximum.
//
// The bounds are swapped when minimum > maximum, and a single scale is
// returned when they are equal. The first scale is always exactly the
// minimum.
func Generate(minimum, maximum float64, steps int, method StepMethod) ([]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: number of scales requested is less than 1 (%d)", ErrInvalidArgument, steps)
	}
	if method != Equispaced && method != Logarithmic {
		return nil, fmt.Errorf("%w: requested step method %s does not exist", ErrInvalidArgument, method)
	}

	if minimum > maximum {
		minimum, maximum = maximum, minimum
	}
	if minimum == maximum {
		steps = 1
	}
	if method == Logarithmic && minimum <= 0 {
		return nil, fmt.Errorf("%w: logarithmic steps need a positive minimum, got %g", ErrInvalidArgument, minimum)
	}

	sigmas := make([]float64, steps)
	sigmas[0] = minimum
	if steps == 1 {
		return sigmas, nil
	}

	switch method {
	case Equispaced:
		step := math.Max(minimumStep, (maximum-minimum)/float64(steps-1))
		for i := 1; i < steps; i++ {
			sigmas[i] = minimum + step*float64(i)
		}
	case Logarithmic:
		logMin := math.Log(minimum)
		step := math.Max(minimumStep, (math.Log(maximum)-logMin)/float64(steps-1))
		for i := 1; i < steps; i++ {
			sigmas[i] = math.Exp(logMin + step*float64(i))
		}
	}
	return sigmas, nil
}

// GenerateEquispaced is Generate with Equispaced steps.
func GenerateEquispaced(minimum, maximum float64, steps int) ([]float64, error) {
	return Generate(minimum, maximum, steps, Equispaced)
}

// GenerateLogarithmic is Generate with Logarithmic steps.
func GenerateLogarithmic(minimum, maximum float64, steps int) ([]float64, error) {
	return Generate(minimum, maximum, steps, Logarithmic)
}
