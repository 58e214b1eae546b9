// Package scan proposes floor-plan slots from a photograph or scanned
// drawing of the venue floor. Detected table-sized blobs become slot
// candidates the operator reviews before anything is created.
package scan

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"floorplan-editor/internal/slot"
	"floorplan-editor/pkg/geometry"
)

// Candidate is one detected table-like region, in pixel coordinates of the
// analyzed photo.
type Candidate struct {
	Bounds   geometry.RectInt
	Area     float64
	Solidity float64 // contour area / bounding box area
	Circular bool    // near-circular outline, proposed as a round table
	Label    string  // filled in by OCR when available
}

// Options configures table detection.
type Options struct {
	MinArea           float64 // minimum contour area in pixels
	MaxAreaFraction   float64 // contour area ceiling as a fraction of the photo
	MinSolidity       float64 // reject thin or ragged contours below this
	CleanupIterations int     // morphological cleanup strength
	RejectOutliers    bool    // drop candidates whose area is far from the group
}

// DefaultOptions returns detection defaults tuned for overhead floor photos.
func DefaultOptions() Options {
	return Options{
		MinArea:           400,
		MaxAreaFraction:   0.25,
		MinSolidity:       0.5,
		CleanupIterations: 2,
		RejectOutliers:    true,
	}
}

// DetectTables finds table-like blobs in a floor photo.
func DetectTables(img gocv.Mat, opts Options) ([]Candidate, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	// Otsu separates furniture from floor on most overhead shots.
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Tables should be the minority of pixels. If the threshold picked the
	// floor as foreground, invert.
	whiteRatio := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols())
	if whiteRatio > 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	if opts.CleanupIterations > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 5, Y: 5})
		defer kernel.Close()
		for i := 0; i < opts.CleanupIterations; i++ {
			gocv.MorphologyEx(binary, &binary, gocv.MorphOpen, kernel)
			gocv.MorphologyEx(binary, &binary, gocv.MorphClose, kernel)
		}
	}

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	maxArea := opts.MaxAreaFraction * float64(img.Rows()*img.Cols())

	var candidates []Candidate
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area < opts.MinArea || (maxArea > 0 && area > maxArea) {
			continue
		}

		rect := gocv.BoundingRect(contour)
		boxArea := float64(rect.Dx() * rect.Dy())
		if boxArea <= 0 {
			continue
		}
		solidity := area / boxArea
		if solidity < opts.MinSolidity {
			continue
		}

		candidates = append(candidates, Candidate{
			Bounds: geometry.RectInt{
				X: rect.Min.X, Y: rect.Min.Y,
				Width: rect.Dx(), Height: rect.Dy(),
			},
			Area:     area,
			Solidity: solidity,
			Circular: looksCircular(rect, area),
		})
	}

	if opts.RejectOutliers {
		candidates = RejectAreaOutliers(candidates)
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Bounds.Y != candidates[b].Bounds.Y {
			return candidates[a].Bounds.Y < candidates[b].Bounds.Y
		}
		return candidates[a].Bounds.X < candidates[b].Bounds.X
	})
	return candidates, nil
}

// looksCircular reports whether a contour fills its bounding square the way
// a disc would: near-square box, area close to pi/4 of it.
func looksCircular(rect image.Rectangle, area float64) bool {
	w, h := float64(rect.Dx()), float64(rect.Dy())
	if w <= 0 || h <= 0 {
		return false
	}
	aspect := w / h
	if aspect < 0.8 || aspect > 1.25 {
		return false
	}
	fill := area / (w * h)
	return math.Abs(fill-math.Pi/4) < 0.1
}

// RejectAreaOutliers drops candidates whose area deviates from the group
// median by more than three scaled median absolute deviations. Tables in
// one venue come in a handful of sizes; a blob far outside that range is
// usually a shadow or a column, not furniture.
func RejectAreaOutliers(candidates []Candidate) []Candidate {
	if len(candidates) < 4 {
		return candidates
	}

	areas := make([]float64, len(candidates))
	for i, c := range candidates {
		areas[i] = c.Area
	}
	sorted := append([]float64(nil), areas...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	devs := make([]float64, len(areas))
	for i, a := range areas {
		devs[i] = math.Abs(a - median)
	}
	sort.Float64s(devs)
	// 1.4826 scales MAD to the standard deviation of a normal distribution.
	mad := 1.4826 * stat.Quantile(0.5, stat.Empirical, devs, nil)
	if mad == 0 {
		return candidates
	}

	kept := candidates[:0]
	for i, c := range candidates {
		if math.Abs(areas[i]-median) <= 3*mad {
			kept = append(kept, c)
		}
	}
	return kept
}

// ToSlots converts candidates into slot proposals. worldPerPixel scales
// photo pixels to world units; zone is assigned to every proposal. IDs are
// left empty: the slot service assigns them on creation.
func ToSlots(candidates []Candidate, worldPerPixel float64, zone string) []slot.Slot {
	if worldPerPixel <= 0 {
		worldPerPixel = 1
	}

	out := make([]slot.Slot, 0, len(candidates))
	for i, c := range candidates {
		b := c.Bounds.ToFloat()

		shape := slot.ShapeRectangle
		if c.Circular {
			shape = slot.ShapeCircle
		} else if aspect := b.Width / b.Height; aspect > 2 || aspect < 0.5 {
			shape = slot.ShapeLongRectangle
		}

		label := c.Label
		if label == "" {
			label = fmt.Sprintf("T%d", i+1)
		}

		out = append(out, slot.Slot{
			Label:  label,
			Type:   slot.TypeTable,
			Shape:  shape,
			X:      b.X * worldPerPixel,
			Y:      b.Y * worldPerPixel,
			Width:  b.Width * worldPerPixel,
			Height: b.Height * worldPerPixel,
			Status: slot.StatusAvailable,
			Zone:   zone,
		})
	}
	return out
}
