package main

import (
	"fmt"
	"image"
	"os"

	"github.com/pthm-cable/swarmmind/telemetry"
)

// writeHeatmapPNG encodes img to path.
func writeHeatmapPNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := telemetry.EncodeHeatmapPNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
