package manipulator

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Form field names shared by the HTTP endpoint, the client and the UI controls
const (
	FieldRotation   = "rotation"
	FieldScale      = "scale"
	FieldFlipX      = "flipX"
	FieldFlipY      = "flipY"
	FieldBrightness = "brightness"
	FieldContrast   = "contrast"
	FieldSaturation = "saturation"
	FieldBlur       = "blur"
	FieldGrayscale  = "grayscale"
)

const (
	DefaultRotation   Degrees = 0
	DefaultScale              = 1.0
	DefaultBrightness Percent = 100
	DefaultContrast   Percent = 100
	DefaultSaturation Percent = 100
	DefaultBlur       Sigma   = 0
)

// Degrees of clockwise rotation
type Degrees float64

// Percent centered at 100, where 100 means no change
type Percent float64

// Sigma of a gaussian blur, 0 means no blur
type Sigma float64

// Flip describes mirroring of an image
type Flip struct {
	Horizontal bool `json:"horizontal"`
	Vertical   bool `json:"vertical"`
}

func (f Flip) None() bool {
	return !f.Vertical && !f.Horizontal
}

// EditState is the complete set of parameters of one edit.
// It only holds scalars, so every copy is independent of the original.
type EditState struct {
	Rotation   Degrees `json:"rotation"`
	Scale      float64 `json:"scale"`
	Flip       Flip    `json:"flip"`
	Brightness Percent `json:"brightness"`
	Contrast   Percent `json:"contrast"`
	Saturation Percent `json:"saturation"`
	Blur       Sigma   `json:"blur"`
	Grayscale  bool    `json:"grayscale"`
}

// Defaults returns the identity edit
func Defaults() EditState {
	return EditState{
		Rotation:   DefaultRotation,
		Scale:      DefaultScale,
		Brightness: DefaultBrightness,
		Contrast:   DefaultContrast,
		Saturation: DefaultSaturation,
		Blur:       DefaultBlur,
	}
}

// RequiresRotation is false for whole turns, they leave the image as it is
func (s EditState) RequiresRotation() bool {
	return math.Mod(float64(s.Rotation), 360) != 0
}

func (s EditState) RequiresResize() bool {
	return s.Scale != 1
}

func (s EditState) RequiresModulation() bool {
	return s.Brightness != DefaultBrightness || s.Saturation != DefaultSaturation
}

func (s EditState) RequiresContrast() bool {
	return s.Contrast != DefaultContrast
}

func (s EditState) RequiresBlur() bool {
	return s.Blur > 0
}

// IsIdentity reports whether applying the state leaves pixels untouched
func (s EditState) IsIdentity() bool {
	return !s.RequiresRotation() &&
		s.Flip.None() &&
		!s.RequiresResize() &&
		!s.RequiresModulation() &&
		!s.RequiresContrast() &&
		!s.RequiresBlur() &&
		!s.Grayscale
}

// With returns a copy of the state with a single field replaced.
// Unlike Normalize it is strict: unknown fields and bad values are errors.
func (s EditState) With(field, raw string) (EditState, error) {
	raw = strings.TrimSpace(raw)

	switch field {
	case FieldFlipX, FieldFlipY, FieldGrayscale:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			vErr := NewValidationError()
			vErr.Add(field, "must be true or false")
			return s, vErr
		}

		switch field {
		case FieldFlipX:
			s.Flip.Horizontal = v
		case FieldFlipY:
			s.Flip.Vertical = v
		default:
			s.Grayscale = v
		}

		return s, nil
	case FieldRotation, FieldScale, FieldBrightness, FieldContrast, FieldSaturation, FieldBlur:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			vErr := NewValidationError()
			vErr.Add(field, "must be a finite number")
			return s, vErr
		}

		switch field {
		case FieldRotation:
			s.Rotation = Degrees(v)
		case FieldScale:
			s.Scale = v
		case FieldBrightness:
			s.Brightness = Percent(v)
		case FieldContrast:
			s.Contrast = Percent(v)
		case FieldSaturation:
			s.Saturation = Percent(v)
		default:
			s.Blur = Sigma(v)
		}

		return s, nil
	default:
		return s, errors.Wrapf(ErrUnknownField, "%q", field)
	}
}

// Fields encodes the state as form values understood by Normalize
func (s EditState) Fields() map[string]string {
	return map[string]string{
		FieldRotation:   formatFloat(float64(s.Rotation)),
		FieldScale:      formatFloat(s.Scale),
		FieldFlipX:      strconv.FormatBool(s.Flip.Horizontal),
		FieldFlipY:      strconv.FormatBool(s.Flip.Vertical),
		FieldBrightness: formatFloat(float64(s.Brightness)),
		FieldContrast:   formatFloat(float64(s.Contrast)),
		FieldSaturation: formatFloat(float64(s.Saturation)),
		FieldBlur:       formatFloat(float64(s.Blur)),
		FieldGrayscale:  strconv.FormatBool(s.Grayscale),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
