package slot

import (
	"image/color"
)

// StatusColors maps each status to its default fill color.
var StatusColors = map[Status]color.RGBA{
	StatusAvailable:   {46, 160, 67, 255},   // Green
	StatusBlocked:     {110, 118, 129, 255}, // Grey
	StatusReserved:    {210, 153, 34, 255},  // Amber
	StatusOccupied:    {207, 34, 46, 255},   // Red
	StatusMaintenance: {130, 80, 223, 255},  // Purple
}

// UnknownStatusColor is used when the backend sends a status outside the
// known set.
var UnknownStatusColor = color.RGBA{88, 96, 105, 255}

// SelectionStroke is the highlight color for selected slots.
var SelectionStroke = color.RGBA{47, 129, 247, 255}

// FillColor returns the slot's effective fill: the metadata color override
// when present and parseable, otherwise the status default.
func (s Slot) FillColor() color.RGBA {
	if s.Metadata != nil && s.Metadata.Color != "" {
		if c, ok := ParseHexColor(s.Metadata.Color); ok {
			return c
		}
	}
	if c, ok := StatusColors[s.Status]; ok {
		return c
	}
	return UnknownStatusColor
}

// ParseHexColor parses a #rrggbb or rrggbb color string.
func ParseHexColor(s string) (color.RGBA, bool) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	var v [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hexNibble(s[2*i])
		lo, ok2 := hexNibble(s[2*i+1])
		if !ok1 || !ok2 {
			return color.RGBA{}, false
		}
		v[i] = hi<<4 | lo
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: 255}, true
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
