package enhancement

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hessianenhance/internal/logging"
	"hessianenhance/pkg/measure"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// HessianOperator computes a scale-normalized Hessian.
type HessianOperator interface {
	Compute(img *volume.Image, sigma float64) (*volume.TensorImage, error)
}

// EigenAnalyzer computes ordered eigenvalues of a symmetric tensor image.
type EigenAnalyzer interface {
	Decompose(t *volume.TensorImage, order measure.EigenValueOrder) (*volume.EigenImage, error)
}

// Estimator derives measure parameters from an eigenvalue image.
type Estimator interface {
	Estimate(img *volume.EigenImage) (measure.Parameters, error)
}

// regionValidator is implemented by estimators that can reject a region
// before any work starts.
type regionValidator interface {
	Validate(region volume.Region) error
}

// ReestimationPolicy decides when measure parameters are estimated.
type ReestimationPolicy int

const (
	// PerScale estimates parameters from every scale's eigenvalues.
	PerScale ReestimationPolicy = iota

	// FirstScale estimates once at the first scale and reuses the result.
	FirstScale

	// FixedParameters never estimates and uses Pipeline.Parameters.
	FixedParameters
)

// String returns the configuration name of the policy.
func (p ReestimationPolicy) String() string {
	switch p {
	case PerScale:
		return "per-scale"
	case FirstScale:
		return "first-scale"
	case FixedParameters:
		return "fixed"
	default:
		return fmt.Sprintf("ReestimationPolicy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration value to a ReestimationPolicy.
func ParsePolicy(s string) (ReestimationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per-scale", "":
		return PerScale, nil
	case "first-scale", "once":
		return FirstScale, nil
	case "fixed":
		return FixedParameters, nil
	default:
		return 0, fmt.Errorf("unknown re-estimation policy %q", s)
	}
}

// ProgressCallback receives the completed fraction in (0, 1] and the name of
// the stage that just finished.
type ProgressCallback func(fraction float64, stage string)

// Pipeline binds the collaborators of one multi-scale enhancement run.
type Pipeline struct {
	// Hessian computes the scale-normalized Hessian
	Hessian HessianOperator

	// Eigen decomposes the Hessian
	Eigen EigenAnalyzer

	// Stage evaluates the measure; required
	Stage *Stage

	// Estimator derives parameters; required unless Policy is FixedParameters
	Estimator Estimator

	// Policy selects when parameters are estimated
	Policy ReestimationPolicy

	// Parameters are used when Policy is FixedParameters
	Parameters measure.Parameters

	// Scales lists the sigmas to evaluate, in physical units
	Scales []float64

	// Progress is called after every internal stage
	Progress ProgressCallback

	// Runner parallelizes the cross-scale combination
	Runner *parallel.Runner

	// Logger receives pipeline events
	Logger zerolog.Logger
}

// progressTracker counts finished internal stages.
type progressTracker struct {
	done     int
	total    int
	callback ProgressCallback
}

// newProgressTracker plans three stages per scale plus one combination for
// every scale after the first.
func newProgressTracker(scales int, callback ProgressCallback) *progressTracker {
	return &progressTracker{
		total:    3*scales + (scales - 1),
		callback: callback,
	}
}

func (p *progressTracker) step(stage string) {
	p.done++
	if p.callback != nil {
		p.callback(float64(p.done)/float64(p.total), stage)
	}
}

// validate checks every precondition before any work is dispatched.
func (p *Pipeline) validate(input *volume.Image) error {
	if p.Stage == nil || p.Stage.Measure == nil {
		return fmt.Errorf("%w: measure stage not set", ErrConfiguration)
	}
	if len(p.Scales) < 1 {
		return fmt.Errorf("%w: no scales provided", ErrConfiguration)
	}
	for i, sigma := range p.Scales {
		if !(sigma > 0) {
			return fmt.Errorf("%w: scale %d is not positive (%g)", ErrConfiguration, i, sigma)
		}
	}
	if p.Hessian == nil {
		return fmt.Errorf("%w: hessian operator not set", ErrConfiguration)
	}
	if p.Eigen == nil {
		return fmt.Errorf("%w: eigen analyzer not set", ErrConfiguration)
	}
	if p.Policy != FixedParameters && p.Estimator == nil {
		return fmt.Errorf("%w: parameter estimator not set for policy %s", ErrConfiguration, p.Policy)
	}
	if input == nil {
		return fmt.Errorf("%w: input image not set", ErrConfiguration)
	}
	if err := p.Stage.Validate(input.Region); err != nil {
		return err
	}
	if v, ok := p.Estimator.(regionValidator); ok && p.Policy != FixedParameters {
		if err := v.Validate(input.Region); err != nil {
			return err
		}
	}
	return nil
}

// Run computes the multi-scale response of input. The result has the
// geometry of input. With a single scale the measure output is returned as
// is; otherwise voxels hold the largest absolute response over all scales.
func (p *Pipeline) Run(input *volume.Image) (*volume.Image, error) {
	if err := p.validate(input); err != nil {
		return nil, err
	}

	logger := logging.Component(p.Logger, "pipeline")
	logger.Info().
		Str("measure", p.Stage.Measure.Name()).
		Str("order", p.Stage.Measure.EigenValueOrder().String()).
		Str("policy", p.Policy.String()).
		Floats64("scales", p.Scales).
		Msg("starting multi-scale enhancement")
	startTime := time.Now()

	runner := p.Runner
	if runner == nil {
		runner = parallel.NewRunner(0)
	}
	progress := newProgressTracker(len(p.Scales), p.Progress)
	run := &scaleRun{pipeline: p, progress: progress, logger: logger}

	result, err := run.responseAtScale(input, 0)
	if err != nil {
		return nil, err
	}

	for level := 1; level < len(p.Scales); level++ {
		response, err := run.responseAtScale(input, level)
		if err != nil {
			return nil, err
		}
		if err := MaximumAbsolute(result, response, runner); err != nil {
			return nil, fmt.Errorf("failed to combine scale %d: %w", level, err)
		}
		progress.step("combine")
	}

	logger.Info().
		Dur("elapsed", time.Since(startTime)).
		Int("scales", len(p.Scales)).
		Msg("multi-scale enhancement finished")
	return result, nil
}

// scaleRun carries the per-call state of Run.
type scaleRun struct {
	pipeline *Pipeline
	progress *progressTracker
	logger   zerolog.Logger

	cached    measure.Parameters
	hasCached bool
}

// responseAtScale runs Hessian, eigen analysis, parameter selection and the
// measure stage for one scale.
func (r *scaleRun) responseAtScale(input *volume.Image, level int) (*volume.Image, error) {
	p := r.pipeline
	sigma := p.Scales[level]
	r.logger.Debug().Int("level", level).Float64("sigma", sigma).Msg("processing scale")

	hessian, err := p.Hessian.Compute(input, sigma)
	if err != nil {
		return nil, fmt.Errorf("hessian at sigma %g failed: %w", sigma, err)
	}
	r.progress.step("hessian")

	eigen, err := p.Eigen.Decompose(hessian, p.Stage.Measure.EigenValueOrder())
	if err != nil {
		return nil, fmt.Errorf("eigen analysis at sigma %g failed: %w", sigma, err)
	}
	r.progress.step("eigen")

	params, err := r.parameters(eigen)
	if err != nil {
		return nil, fmt.Errorf("parameter estimation at sigma %g failed: %w", sigma, err)
	}
	r.logger.Debug().
		Float64("sigma", sigma).
		Float64("alpha", params.Alpha).
		Float64("beta", params.Beta).
		Float64("c", params.C).
		Msg("measure parameters bound")

	response, err := p.Stage.Apply(eigen, params)
	if err != nil {
		return nil, fmt.Errorf("measure at sigma %g failed: %w", sigma, err)
	}
	r.progress.step("measure")
	return response, nil
}

func (r *scaleRun) parameters(eigen *volume.EigenImage) (measure.Parameters, error) {
	p := r.pipeline
	switch p.Policy {
	case FixedParameters:
		return p.Parameters, nil
	case FirstScale:
		if r.hasCached {
			return r.cached, nil
		}
		params, err := p.Estimator.Estimate(eigen)
		if err != nil {
			return measure.Parameters{}, err
		}
		r.cached, r.hasCached = params, true
		return params, nil
	default:
		return p.Estimator.Estimate(eigen)
	}
}
