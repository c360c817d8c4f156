package avatar

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a color is not a #RGB or #RRGGBB hex string.
var ErrInvalidColor = errors.New("invalid hex color")

// Style selects how bones are stroked.
type Style string

const (
	StyleSolid    Style = "solid"
	StyleDashed   Style = "dashed"
	StyleGradient Style = "gradient"
)

// Customization limits.
const (
	MinSize          = 0.5
	MaxSize          = 2.0
	MinLineThickness = 1
	MaxLineThickness = 5
	MinJointSize     = 0.5
	MaxJointSize     = 2.0
)

// Customization is the user-tunable look of the avatar.
type Customization struct {
	Color         color.RGBA
	Size          float64
	Style         Style
	LineThickness int
	JointSize     float64
}

// DefaultCustomization returns a mid-blue avatar with solid 2px bones.
func DefaultCustomization() Customization {
	return Customization{
		Color:         color.RGBA{R: 0, G: 160, B: 255, A: 255},
		Size:          1.0,
		Style:         StyleSolid,
		LineThickness: 2,
		JointSize:     1.0,
	}
}

type customizationJSON struct {
	Color         string  `json:"color"`
	Size          float64 `json:"size"`
	Style         Style   `json:"style"`
	LineThickness int     `json:"lineThickness"`
	JointSize     float64 `json:"jointSize"`
}

// MarshalJSON encodes the color as #rrggbb.
func (c Customization) MarshalJSON() ([]byte, error) {
	return json.Marshal(customizationJSON{
		Color:         FormatHexColor(c.Color),
		Size:          c.Size,
		Style:         c.Style,
		LineThickness: c.LineThickness,
		JointSize:     c.JointSize,
	})
}

// Update is a partial customization request. Nil fields are left unchanged.
type Update struct {
	Color         *string  `json:"color,omitempty"`
	Size          *float64 `json:"size,omitempty"`
	Style         *string  `json:"style,omitempty"`
	LineThickness *float64 `json:"lineThickness,omitempty"`
	JointSize     *float64 `json:"jointSize,omitempty"`
}

// FieldError reports a rejected field of an Update.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// apply validates each field of u on its own and writes the valid ones into c.
// Out-of-range numbers are clamped, not rejected.
func (c *Customization) apply(u Update) []error {
	var errs []error

	if u.Color != nil {
		rgba, err := ParseHexColor(*u.Color)
		if err != nil {
			errs = append(errs, &FieldError{Field: "color", Message: err.Error(), Err: err})
		} else {
			c.Color = rgba
		}
	}

	if u.Size != nil {
		if !finite(*u.Size) {
			errs = append(errs, &FieldError{Field: "size", Message: "must be a finite number"})
		} else {
			c.Size = clamp(*u.Size, MinSize, MaxSize)
		}
	}

	if u.Style != nil {
		switch s := Style(strings.ToLower(*u.Style)); s {
		case StyleSolid, StyleDashed, StyleGradient:
			c.Style = s
		default:
			errs = append(errs, &FieldError{
				Field:   "style",
				Message: fmt.Sprintf("unknown style %q", *u.Style),
			})
		}
	}

	if u.LineThickness != nil {
		v := *u.LineThickness
		if !finite(v) || v != math.Trunc(v) {
			errs = append(errs, &FieldError{Field: "lineThickness", Message: "must be an integer"})
		} else {
			c.LineThickness = int(clamp(v, MinLineThickness, MaxLineThickness))
		}
	}

	if u.JointSize != nil {
		if !finite(*u.JointSize) {
			errs = append(errs, &FieldError{Field: "jointSize", Message: "must be a finite number"})
		} else {
			c.JointSize = clamp(*u.JointSize, MinJointSize, MaxJointSize)
		}
	}

	return errs
}

// ParseHexColor parses "#RRGGBB", "RRGGBB" or "#RGB".
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// FormatHexColor renders c as #rrggbb.
func FormatHexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FieldErrors extracts the *FieldError values from errs, for reporting.
func FieldErrors(errs []error) []*FieldError {
	out := make([]*FieldError, 0, len(errs))
	for _, err := range errs {
		var fe *FieldError
		if errors.As(err, &fe) {
			out = append(out, fe)
		}
	}
	return out
}
