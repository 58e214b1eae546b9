// Command scanpreview runs table detection on a floor photo and outputs
// the detected candidates, optionally writing an annotated preview image.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"gocv.io/x/gocv"

	"floorplan-editor/internal/scan"
)

func main() {
	imagePath := flag.String("image", "", "Path to floor photo (PNG, JPEG, or TIFF)")
	outPath := flag.String("out", "", "Write annotated preview image to this path")
	minArea := flag.Float64("min-area", 400, "Minimum blob area in pixels")
	scale := flag.Float64("scale", 1.0, "World units per photo pixel")
	zone := flag.String("zone", "", "Zone assigned to proposed slots")
	ocr := flag.Bool("ocr", false, "Run OCR to read table labels")
	asJSON := flag.Bool("json", false, "Print proposals as JSON")
	maxEdge := flag.Int("max-edge", 0, "Downscale preview so its longest edge fits this many pixels")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: scanpreview -image <path> [-out preview.png] [-min-area 400] [-ocr] [-json]")
		os.Exit(1)
	}

	img, err := scan.LoadPhoto(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load photo: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	fmt.Printf("Loaded photo: %dx%d pixels\n", img.Cols(), img.Rows())

	opts := scan.DefaultOptions()
	opts.MinArea = *minArea
	candidates, err := scan.DetectTables(img, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Detected %d table candidates\n", len(candidates))

	if *ocr {
		labeler, err := scan.NewLabeler("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "OCR unavailable: %v\n", err)
		} else {
			if err := labeler.LabelCandidates(img, candidates); err != nil {
				fmt.Fprintf(os.Stderr, "OCR failed: %v\n", err)
			}
			labeler.Close()
		}
	}

	proposals := scan.ToSlots(candidates, *scale, *zone)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(proposals); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode proposals: %v\n", err)
			os.Exit(1)
		}
	} else {
		for i, c := range candidates {
			shape := "rect"
			if c.Circular {
				shape = "circle"
			}
			fmt.Printf("  [%d] %s at (%d,%d) %dx%d area=%.0f solidity=%.2f label=%q\n",
				i, shape, c.Bounds.X, c.Bounds.Y, c.Bounds.Width, c.Bounds.Height,
				c.Area, c.Solidity, c.Label)
		}
	}

	if *outPath != "" {
		if err := writePreview(img, candidates, *outPath, *maxEdge); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write preview: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Preview written to %s\n", *outPath)
	}
}

// writePreview draws candidate boxes on a copy of the photo and writes it
// as PNG, downscaling when requested.
func writePreview(img gocv.Mat, candidates []scan.Candidate, path string, maxEdge int) error {
	annotated := img.Clone()
	defer annotated.Close()

	boxColor := color.RGBA{R: 47, G: 129, B: 247, A: 255}
	for _, c := range candidates {
		rect := image.Rect(c.Bounds.X, c.Bounds.Y,
			c.Bounds.X+c.Bounds.Width, c.Bounds.Y+c.Bounds.Height)
		gocv.Rectangle(&annotated, rect, boxColor, 2)
	}

	preview, err := annotated.ToImage()
	if err != nil {
		return fmt.Errorf("convert preview: %w", err)
	}
	if maxEdge > 0 {
		preview = scan.Downscale(preview, maxEdge)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	defer f.Close()
	return png.Encode(f, preview)
}
