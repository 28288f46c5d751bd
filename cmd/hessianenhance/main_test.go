package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"hessianenhance/pkg/config"
)

// writeTubeSlices writes depth PNG slices of a bright tube crossing the stack
func writeTubeSlices(t *testing.T, dir string, size, depth int) {
	t.Helper()
	for z := 0; z < depth; z++ {
		img := image.NewGray16(image.Rect(0, 0, size, size))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x - size/2)
				dy := float64(y - size/2)
				v := math.Exp(-(dx*dx + dy*dy) / 8)
				img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
			}
		}
		file, err := os.Create(filepath.Join(dir, fmt.Sprintf("slice_%d.png", z)))
		if err != nil {
			t.Fatalf("Failed to create slice: %v", err)
		}
		if err := png.Encode(file, img); err != nil {
			file.Close()
			t.Fatalf("Failed to encode slice: %v", err)
		}
		file.Close()
	}
}

// TestRunEndToEnd loads slices, enhances them and exports the response
func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}

	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	writeTubeSlices(t, inputDir, 16, 4)

	cfg := config.DefaultConfig()
	cfg.Processing.NumWorkers = 2
	cfg.Scales.Minimum = 1
	cfg.Scales.Maximum = 2
	cfg.Scales.Steps = 2
	cfg.Measure.Kind = "frangi"

	if err := run(cfg, inputDir, "", outputDir, zerolog.Nop()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for z := 0; z < 4; z++ {
		name := filepath.Join(outputDir, "slices", fmt.Sprintf("slice_z_%03d.jpg", z))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("Missing response slice: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(outputDir, "mip_z.png")); err != nil {
		t.Errorf("Missing projection: %v", err)
	}
}

// TestRunMaskMismatch verifies a mask of the wrong size fails before processing
func TestRunMaskMismatch(t *testing.T) {
	inputDir := t.TempDir()
	maskDir := t.TempDir()
	writeTubeSlices(t, inputDir, 8, 3)
	writeTubeSlices(t, maskDir, 8, 2)

	cfg := config.DefaultConfig()
	cfg.Scales.Steps = 1
	if err := run(cfg, inputDir, maskDir, t.TempDir(), zerolog.Nop()); err == nil {
		t.Error("Expected an error for a mask covering fewer slices")
	}
}
