package telemetry

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/systems"
)

// HeatmapImageOptions controls the debug heatmap render.
type HeatmapImageOptions struct {
	Extent        float64 // world units shown on each side of the target
	PixelsPerUnit float64
	CellSize      float64 // heatmap cell size in world units
	HotIntensity  int     // zones above this are drawn at full strength
}

// DefaultHeatmapImageOptions returns a 40x40 world-unit view at 12 px per unit.
func DefaultHeatmapImageOptions(cellSize float64, hotIntensity int) HeatmapImageOptions {
	return HeatmapImageOptions{
		Extent:        20,
		PixelsPerUnit: 12,
		CellSize:      cellSize,
		HotIntensity:  hotIntensity,
	}
}

// tagColors are RGB triples for agent dots by movement tag.
var tagColors = map[string][3]float64{
	"normal":      {0.85, 0.85, 0.85},
	"avoiding":    {0.30, 0.80, 1.00},
	"coordinated": {0.40, 1.00, 0.40},
	"flanking":    {1.00, 0.80, 0.20},
	"zigzag":      {0.90, 0.40, 1.00},
}

// RenderHeatmap draws active heat zones, the target and agents as an image.
func RenderHeatmap(zones []systems.HeatZone, agents []components.BehaviorSnapshot, target components.Vec2, opts HeatmapImageOptions) image.Image {
	if opts.Extent <= 0 || opts.PixelsPerUnit <= 0 {
		opts = DefaultHeatmapImageOptions(opts.CellSize, opts.HotIntensity)
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 1
	}
	size := int(math.Ceil(2 * opts.Extent * opts.PixelsPerUnit))
	dc := gg.NewContext(size, size)

	toPx := func(x, z float64) (float64, float64) {
		px := (x - target.X + opts.Extent) * opts.PixelsPerUnit
		py := (opts.Extent - (z - target.Y)) * opts.PixelsPerUnit
		return px, py
	}

	dc.SetRGB(0.08, 0.10, 0.08)
	dc.Clear()

	// Zones: red, alpha scaled by intensity relative to the hot threshold
	full := float64(opts.HotIntensity + 1)
	cellPx := opts.CellSize * opts.PixelsPerUnit
	for _, z := range zones {
		alpha := math.Min(1, float64(z.Intensity)/full)
		px, py := toPx(z.Center.X, z.Center.Y)
		dc.SetRGBA(1, 0.15, 0.1, 0.2+0.8*alpha)
		dc.DrawRectangle(px-cellPx/2, py-cellPx/2, cellPx, cellPx)
		dc.Fill()
	}

	// Target
	tx, ty := toPx(target.X, target.Y)
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.DrawCircle(tx, ty, opts.PixelsPerUnit*0.6)
	dc.Stroke()

	for _, a := range agents {
		c, ok := tagColors[a.Tag]
		if !ok {
			c = tagColors["normal"]
		}
		px, py := toPx(a.X, a.Z)
		if a.Hidden {
			dc.SetRGBA(c[0], c[1], c[2], 0.3)
		} else {
			dc.SetRGB(c[0], c[1], c[2])
		}
		dc.DrawCircle(px, py, opts.PixelsPerUnit*0.3)
		dc.Fill()
	}

	return dc.Image()
}

// EncodeHeatmapPNG writes a rendered heatmap as PNG.
func EncodeHeatmapPNG(w io.Writer, img image.Image) error {
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding heatmap png: %w", err)
	}
	return nil
}
