package scan

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// LabelChars is the character set for table label OCR. Venue plans label
// tables with short uppercase codes; excluding lowercase avoids 0/O and
// 1/I confusion.
const LabelChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-"

// Labeler reads table labels off a floor photo using Tesseract.
type Labeler struct {
	client *gosseract.Client
}

// NewLabeler creates a labeler. tessdataPrefix may be empty to use the
// system default language data location.
func NewLabeler(tessdataPrefix string) (*Labeler, error) {
	client := gosseract.NewClient()

	if tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(tessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}

	// Table codes are not dictionary words; keep Tesseract from
	// "correcting" T12 into something else.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Labeler{client: client}, nil
}

// Close releases OCR resources.
func (l *Labeler) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// LabelCandidates runs OCR inside each candidate's bounds and fills in the
// Label field where a plausible code is found. Unreadable candidates are
// left unlabeled, never dropped.
func (l *Labeler) LabelCandidates(img gocv.Mat, candidates []Candidate) error {
	if img.Empty() {
		return fmt.Errorf("empty image")
	}

	for i := range candidates {
		text, err := l.recognizeRegion(img, candidates[i])
		if err != nil {
			continue
		}
		if isPlausibleLabel(text) {
			candidates[i].Label = text
		}
	}
	return nil
}

func (l *Labeler) recognizeRegion(img gocv.Mat, c Candidate) (string, error) {
	b := c.Bounds
	x := max(0, b.X)
	y := max(0, b.Y)
	w := min(b.Width, img.Cols()-x)
	h := min(b.Height, img.Rows()-y)
	if w <= 0 || h <= 0 {
		return "", fmt.Errorf("invalid region bounds")
	}

	region := img.Region(image.Rect(x, y, x+w, y+h))
	defer region.Close()

	processed := preprocessForOCR(region)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("encode region: %w", err)
	}
	defer buf.Close()

	if err := l.client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set PSM: %w", err)
	}
	if err := l.client.SetWhitelist(LabelChars); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := l.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := l.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	text = strings.ToUpper(strings.TrimSpace(text))
	text = strings.Join(strings.Fields(text), "")
	return text, nil
}

// isPlausibleLabel accepts short codes like "T12", "B3", or "VIP-2".
func isPlausibleLabel(text string) bool {
	if len(text) == 0 || len(text) > 8 {
		return false
	}
	hasAlnum := false
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			hasAlnum = true
		case r == '-':
		default:
			return false
		}
	}
	return hasAlnum
}

// preprocessForOCR prepares a photo region for label recognition: upscale
// small crops, boost contrast, binarize, and normalize to dark-on-light.
func preprocessForOCR(region gocv.Mat) gocv.Mat {
	h, w := region.Rows(), region.Cols()

	var scaled gocv.Mat
	if minDim := min(h, w); minDim < 150 {
		scale := 150.0 / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(region, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = region.Clone()
	}

	gray := gocv.NewMat()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// OCR expects dark text on a light background.
	whiteCount := gocv.CountNonZero(binary)
	if float64(whiteCount) > 0.5*float64(binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}

	result := gocv.NewMat()
	gocv.CvtColor(binary, &result, gocv.ColorGrayToBGR)
	binary.Close()

	return result
}
