package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"hessianenhance/internal/logging"
	"hessianenhance/pkg/config"
	"hessianenhance/pkg/enhancement"
	"hessianenhance/pkg/estimation"
	"hessianenhance/pkg/hessian"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/sliceio"
	"hessianenhance/pkg/visualization"
	"hessianenhance/pkg/volume"
)

func main() {
	inputDir := flag.String("input", "", "Directory containing the 2D slices of the input volume")
	maskDir := flag.String("mask", "", "Optional directory of label slices; label 0 is background")
	configPath := flag.String("config", "hessianenhance.yaml", "YAML configuration file")
	outputDir := flag.String("output", "enhanced", "Directory for the response slices and projection")
	workers := flag.Int("workers", 0, "Override processing.numWorkers (0 keeps the configured value)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Processing.NumWorkers = *workers
	}

	level, err := logging.ParseLevel(cfg.LogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger := logging.NewConsole(level)

	if err := run(cfg, *inputDir, *maskDir, *outputDir, logger); err != nil {
		logger.Fatal().Err(err).Msg("enhancement failed")
	}
}

func run(cfg *config.Config, inputDir, maskDir, outputDir string, logger zerolog.Logger) error {
	runner := parallel.NewRunner(cfg.Processing.NumWorkers).WithRegions(cfg.Processing.NumRegions)

	loader := sliceio.NewLoader(cfg.Processing.SliceGap, logger)
	input, err := loader.LoadImage(inputDir)
	if err != nil {
		return fmt.Errorf("failed to load input slices: %w", err)
	}

	var labels *volume.LabelImage
	if maskDir != "" {
		labels, err = loader.LoadLabels(maskDir)
		if err != nil {
			return fmt.Errorf("failed to load mask slices: %w", err)
		}
	}

	pipeline, err := buildPipeline(cfg, runner, labels, logger)
	if err != nil {
		return err
	}

	startTime := time.Now()
	response, err := pipeline.Run(input)
	if err != nil {
		return err
	}

	var mask volume.Mask
	if labels != nil {
		mask = pipeline.Stage.Mask
	}
	summary := enhancement.Summarize(response, mask)
	logger.Info().
		Dur("elapsed", time.Since(startTime)).
		Int("voxels", summary.Voxels).
		Float64("min", summary.Min).
		Float64("max", summary.Max).
		Float64("mean", summary.Mean).
		Float64("std_dev", summary.StdDev).
		Float64("median", summary.Median).
		Float64("positive_fraction", summary.Positive).
		Msg("response summary")

	return saveOutputs(cfg, response, outputDir, logger)
}

// buildPipeline wires the reference operators with the configured measure,
// schedule and estimation policy.
func buildPipeline(cfg *config.Config, runner *parallel.Runner, labels *volume.LabelImage, logger zerolog.Logger) (*enhancement.Pipeline, error) {
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, fmt.Errorf("invalid scale schedule: %w", err)
	}
	m, err := cfg.NewMeasure()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	stage := enhancement.NewStage(m, runner)
	estimator := estimation.NewDescoteauxEstimator(runner, logger)
	estimator.FrobeniusNormWeight = cfg.Estimation.FrobeniusNormWeight
	estimator.BackgroundValue = cfg.Estimation.BackgroundValue
	if labels != nil {
		stage.Mask = volume.LabelMask{Labels: labels, Background: cfg.Estimation.BackgroundValue}
		estimator.Mask = labels
	}

	return &enhancement.Pipeline{
		Hessian:    hessian.NewGaussianOperator(runner, logger),
		Eigen:      hessian.NewEigenAnalyzer(runner),
		Stage:      stage,
		Estimator:  estimator,
		Policy:     policy,
		Parameters: cfg.Parameters(),
		Scales:     schedule,
		Runner:     runner,
		Logger:     logger,
		Progress: func(fraction float64, stage string) {
			logger.Info().Str("stage", stage).Msgf("progress %.0f%%", fraction*100)
		},
	}, nil
}

func saveOutputs(cfg *config.Config, response *volume.Image, outputDir string, logger zerolog.Logger) error {
	if !cfg.Output.SaveSlices && !cfg.Output.SaveMIP {
		return nil
	}
	if response.Region.Dimension() != 3 {
		logger.Warn().Int("dimension", response.Region.Dimension()).Msg("skipping image export for a non 3-D response")
		return nil
	}

	axis, err := config.AxisIndex(cfg.Output.SliceAxis)
	if err != nil {
		return err
	}
	viewer, err := visualization.NewViewer(response)
	if err != nil {
		return err
	}

	if cfg.Output.SaveSlices {
		slicesDir := filepath.Join(outputDir, "slices")
		n, err := viewer.SaveSliceSequence(axis, slicesDir)
		if err != nil {
			return fmt.Errorf("failed to save response slices: %w", err)
		}
		logger.Info().Int("slices", n).Str("dir", slicesDir).Msg("saved response slices")
	}
	if cfg.Output.SaveMIP {
		path, err := viewer.SaveProjection(axis, outputDir)
		if err != nil {
			return fmt.Errorf("failed to save projection: %w", err)
		}
		logger.Info().Str("file", path).Msg("saved maximum intensity projection")
	}
	return nil
}
