package manipulator

import (
	"math"
	"mime/multipart"
	"strconv"
	"strings"
)

// Normalize turns loosely typed form values into a complete EditState.
// It never fails: every missing or unusable value falls back to its default.
func Normalize(values map[string][]string) EditState {
	s := Defaults()

	s.Rotation = Degrees(floatOrDefault(values, FieldRotation, float64(DefaultRotation)))
	s.Scale = floatOrDefault(values, FieldScale, DefaultScale)
	s.Flip.Horizontal = isTrue(values, FieldFlipX)
	s.Flip.Vertical = isTrue(values, FieldFlipY)
	s.Brightness = Percent(floatOrDefault(values, FieldBrightness, float64(DefaultBrightness)))
	s.Contrast = Percent(floatOrDefault(values, FieldContrast, float64(DefaultContrast)))
	s.Saturation = Percent(floatOrDefault(values, FieldSaturation, float64(DefaultSaturation)))
	s.Blur = Sigma(floatOrDefault(values, FieldBlur, float64(DefaultBlur)))
	s.Grayscale = isTrue(values, FieldGrayscale)

	return s
}

// NormalizeForm is Normalize over the value part of a multipart form
func NormalizeForm(form *multipart.Form) EditState {
	if form == nil {
		return Defaults()
	}

	return Normalize(form.Value)
}

func firstValue(values map[string][]string, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}

	return vs[0], true
}

func floatOrDefault(values map[string][]string, key string, def float64) float64 {
	raw, ok := firstValue(values, key)
	if !ok {
		return def
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// only the exact string "true" turns a flag on
func isTrue(values map[string][]string, key string) bool {
	raw, ok := firstValue(values, key)
	return ok && raw == "true"
}
