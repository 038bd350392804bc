package manipulator

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	StepRotate    = "rotate"
	StepFlipX     = "flipX"
	StepFlipY     = "flipY"
	StepResize    = "resize"
	StepModulate  = "modulate"
	StepContrast  = "contrast"
	StepBlur      = "blur"
	StepGrayscale = "grayscale"
)

// Step is one transform of the edit pipeline
type Step struct {
	Name  string
	Apply func(img image.Image) (image.Image, error)
}

// Plan lists the steps needed for the given state. The order is fixed:
// every step works on the output of the previous one.
func Plan(s EditState, cfg *Config) []Step {
	var steps []Step

	if s.RequiresRotation() {
		angle := float64(s.Rotation)
		steps = append(steps, Step{Name: StepRotate, Apply: func(img image.Image) (image.Image, error) {
			return rotate(img, angle), nil
		}})
	}

	if s.Flip.Horizontal {
		steps = append(steps, Step{Name: StepFlipX, Apply: func(img image.Image) (image.Image, error) {
			return imaging.FlipH(img), nil
		}})
	}

	if s.Flip.Vertical {
		steps = append(steps, Step{Name: StepFlipY, Apply: func(img image.Image) (image.Image, error) {
			return imaging.FlipV(img), nil
		}})
	}

	if s.RequiresResize() {
		scale := s.Scale
		maxDimension := cfg.maxDimension()
		steps = append(steps, Step{Name: StepResize, Apply: func(img image.Image) (image.Image, error) {
			return resize(img, scale, maxDimension)
		}})
	}

	if s.RequiresModulation() {
		brightness, saturation := s.Brightness, s.Saturation
		steps = append(steps, Step{Name: StepModulate, Apply: func(img image.Image) (image.Image, error) {
			return modulate(img, brightness, saturation), nil
		}})
	}

	if s.RequiresContrast() {
		contrast := s.Contrast
		steps = append(steps, Step{Name: StepContrast, Apply: func(img image.Image) (image.Image, error) {
			return linear(img, float64(contrast)/100, 0), nil
		}})
	}

	if s.RequiresBlur() {
		sigma := float64(s.Blur)
		steps = append(steps, Step{Name: StepBlur, Apply: func(img image.Image) (image.Image, error) {
			return imaging.Blur(img, sigma), nil
		}})
	}

	if s.Grayscale {
		steps = append(steps, Step{Name: StepGrayscale, Apply: func(img image.Image) (image.Image, error) {
			return imaging.Grayscale(img), nil
		}})
	}

	return steps
}

// Run applies the steps in order. Either all of them succeed or no image is returned.
func Run(ctx context.Context, img image.Image, steps []Step) (image.Image, error) {
	out := img
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "edit interrupted before %s", step.Name)
		}

		next, err := step.run(out)
		if err != nil {
			return nil, err
		}

		out = next
	}

	return out, nil
}

func (s Step) run(img image.Image) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Wrapf(ErrTransformationFailed, "%s step panicked: %v", s.Name, r)
		}
	}()

	out, err = s.Apply(img)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s step", s.Name)
	}

	if out == nil || out.Bounds().Empty() {
		return nil, errors.Wrapf(ErrTransformationFailed, "%s step produced an empty image", s.Name)
	}

	return out, nil
}

// imaging rotates counter-clockwise, the editor rotates clockwise.
// The canvas grows to fit the rotated image, the uncovered corners stay transparent.
func rotate(img image.Image, degrees float64) image.Image {
	return imaging.Rotate(img, -degrees, color.Transparent)
}

// ScaledDimensions computes the target size of a resize, never below 1x1
func ScaledDimensions(width, height int, scale float64) (int, int) {
	return scaleSide(width, scale), scaleSide(height, scale)
}

func scaleSide(side int, scale float64) int {
	v := math.Round(float64(side) * scale)
	if v < 1 || math.IsNaN(v) {
		return 1
	}

	if v > math.MaxInt32 {
		return math.MaxInt32
	}

	return int(v)
}

func resize(img image.Image, scale float64, maxDimension int) (image.Image, error) {
	width, height := ScaledDimensions(img.Bounds().Dx(), img.Bounds().Dy(), scale)

	if maxDimension > 0 && (width > maxDimension || height > maxDimension) {
		return nil, errors.Wrapf(
			ErrBadTransformationRequest,
			"scale %v produces %dx%d, max side is %d",
			scale, width, height, maxDimension,
		)
	}

	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// modulate scales brightness and saturation in one pass. Saturation moves every
// channel away from or towards the pixel luma, brightness multiplies the result.
func modulate(img image.Image, brightness, saturation Percent) image.Image {
	b := float64(brightness) / 100
	s := float64(saturation) / 100

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r, g, bl := float64(c.R), float64(c.G), float64(c.B)
		l := luma(r, g, bl)

		return color.NRGBA{
			R: clampChannel((l + (r-l)*s) * b),
			G: clampChannel((l + (g-l)*s) * b),
			B: clampChannel((l + (bl-l)*s) * b),
			A: c.A,
		}
	})
}

// linear remaps every color channel as in*a + b
func linear(img image.Image, a, b float64) image.Image {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel(float64(c.R)*a + b),
			G: clampChannel(float64(c.G)*a + b),
			B: clampChannel(float64(c.B)*a + b),
			A: c.A,
		}
	})
}

// Rec. 601, the same weights imaging.Grayscale uses
func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func clampChannel(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}

	if v >= 255 {
		return 255
	}

	return uint8(v + 0.5)
}
