package manipulator

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepNames(steps []Step) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	return names
}

func TestPlan(t *testing.T) {
	t.Run("default state needs no steps", func(t *testing.T) {
		assert.Empty(t, Plan(Defaults(), nil))
	})

	t.Run("steps always come in the same order", func(t *testing.T) {
		s := EditState{
			Rotation:   90,
			Scale:      2,
			Flip:       Flip{Horizontal: true, Vertical: true},
			Brightness: 90,
			Contrast:   110,
			Saturation: 100,
			Blur:       1,
			Grayscale:  true,
		}

		assert.Equal(t, []string{
			StepRotate, StepFlipX, StepFlipY, StepResize,
			StepModulate, StepContrast, StepBlur, StepGrayscale,
		}, stepNames(Plan(s, nil)))
	})

	t.Run("full turns and neutral values are skipped", func(t *testing.T) {
		s := Defaults()
		s.Rotation = 720
		s.Blur = -3
		s.Saturation = 40

		assert.Equal(t, []string{StepModulate}, stepNames(Plan(s, nil)))
	})
}

func TestScaledDimensions(t *testing.T) {
	tt := []struct {
		scale          float64
		width, height  int
		expectedWidth  int
		expectedHeight int
	}{
		{scale: 1, width: 100, height: 60, expectedWidth: 100, expectedHeight: 60},
		{scale: 0.5, width: 100, height: 60, expectedWidth: 50, expectedHeight: 30},
		{scale: 0.333, width: 100, height: 60, expectedWidth: 33, expectedHeight: 20},
		{scale: 2.5, width: 3, height: 1, expectedWidth: 8, expectedHeight: 3},
		{scale: 0.001, width: 100, height: 60, expectedWidth: 1, expectedHeight: 1},
		{scale: 0, width: 100, height: 60, expectedWidth: 1, expectedHeight: 1},
		{scale: -2, width: 100, height: 60, expectedWidth: 1, expectedHeight: 1},
	}

	for _, tc := range tt {
		w, h := ScaledDimensions(tc.width, tc.height, tc.scale)
		assert.Equal(t, tc.expectedWidth, w, "width for scale %v", tc.scale)
		assert.Equal(t, tc.expectedHeight, h, "height for scale %v", tc.scale)
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("rotating by 90 degrees turns the image clockwise", func(t *testing.T) {
		src := newTestImage(100, 60)

		out, err := Run(ctx, src, Plan(EditState{Rotation: 90, Scale: 1, Brightness: 100, Contrast: 100, Saturation: 100}, nil))
		require.NoError(t, err)

		assert.Equal(t, 60, out.Bounds().Dx())
		assert.Equal(t, 100, out.Bounds().Dy())

		// the top left corner ends up in the top right corner
		sr, sg, sb, _ := rgba8(src.At(0, 0))
		or, og, ob, _ := rgba8(out.At(out.Bounds().Min.X+59, out.Bounds().Min.Y))
		assert.Equal(t, []uint8{sr, sg, sb}, []uint8{or, og, ob})
	})

	t.Run("rotating by an arbitrary angle grows the canvas with transparent corners", func(t *testing.T) {
		s := Defaults()
		s.Rotation = 45

		out, err := Run(ctx, newTestImage(100, 60), Plan(s, nil))
		require.NoError(t, err)

		assert.Greater(t, out.Bounds().Dx(), 100)
		assert.Greater(t, out.Bounds().Dy(), 60)

		_, _, _, a := rgba8(out.At(out.Bounds().Min.X, out.Bounds().Min.Y))
		assert.Equal(t, uint8(0), a)
	})

	t.Run("flipping twice gives back the original", func(t *testing.T) {
		src := newTestImage(31, 17)
		s := Defaults()
		s.Flip = Flip{Horizontal: true, Vertical: true}

		once, err := Run(ctx, src, Plan(s, nil))
		require.NoError(t, err)
		twice, err := Run(ctx, once, Plan(s, nil))
		require.NoError(t, err)

		assertSamePixels(t, src, twice)
	})

	t.Run("horizontal flip mirrors the rows", func(t *testing.T) {
		src := newTestImage(10, 4)
		s := Defaults()
		s.Flip.Horizontal = true

		out, err := Run(ctx, src, Plan(s, nil))
		require.NoError(t, err)

		assert.Equal(t, src.At(0, 2), out.At(9, 2))
	})

	t.Run("brightness multiplies every channel", func(t *testing.T) {
		s := Defaults()
		s.Brightness = 50

		out, err := Run(ctx, newSolidImage(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255}), Plan(s, nil))
		require.NoError(t, err)

		r, g, b, a := rgba8(out.At(1, 1))
		assert.Equal(t, []uint8{100, 50, 25, 255}, []uint8{r, g, b, a})
	})

	t.Run("zero saturation leaves only the luma", func(t *testing.T) {
		s := Defaults()
		s.Saturation = 0

		out, err := Run(ctx, newSolidImage(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255}), Plan(s, nil))
		require.NoError(t, err)

		r, g, b, _ := rgba8(out.At(2, 2))
		assert.Equal(t, []uint8{124, 124, 124}, []uint8{r, g, b})
	})

	t.Run("contrast scales channels and clamps them", func(t *testing.T) {
		s := Defaults()
		s.Contrast = 150

		out, err := Run(ctx, newSolidImage(4, 4, color.NRGBA{R: 100, G: 200, B: 10, A: 255}), Plan(s, nil))
		require.NoError(t, err)

		r, g, b, _ := rgba8(out.At(0, 0))
		assert.Equal(t, []uint8{150, 255, 15}, []uint8{r, g, b})
	})

	t.Run("blur keeps a flat color flat", func(t *testing.T) {
		s := Defaults()
		s.Blur = 2

		out, err := Run(ctx, newSolidImage(16, 16, color.NRGBA{R: 80, G: 160, B: 240, A: 255}), Plan(s, nil))
		require.NoError(t, err)

		r, g, b, _ := rgba8(out.At(8, 8))
		assert.InDelta(t, 80, int(r), 1)
		assert.InDelta(t, 160, int(g), 1)
		assert.InDelta(t, 240, int(b), 1)
	})

	t.Run("grayscale wins over a boosted saturation", func(t *testing.T) {
		s := Defaults()
		s.Saturation = 200
		s.Grayscale = true

		out, err := Run(ctx, newTestImage(20, 20), Plan(s, nil))
		require.NoError(t, err)

		b := out.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := rgba8(out.At(x, y))
				require.True(t, r == g && g == bl, "pixel (%d,%d) has chroma", x, y)
			}
		}
	})

	t.Run("a panicking step is reported as a failed transformation", func(t *testing.T) {
		steps := []Step{{Name: "boom", Apply: func(img image.Image) (image.Image, error) {
			panic("out of range")
		}}}

		out, err := Run(ctx, newTestImage(2, 2), steps)

		assert.Nil(t, out)
		assert.True(t, errors.Is(err, ErrTransformationFailed))
	})

	t.Run("a step returning an empty image fails the run", func(t *testing.T) {
		steps := []Step{{Name: "empty", Apply: func(img image.Image) (image.Image, error) {
			return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
		}}}

		_, err := Run(ctx, newTestImage(2, 2), steps)

		assert.True(t, errors.Is(err, ErrTransformationFailed))
	})

	t.Run("a canceled context stops the run", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		s := Defaults()
		s.Flip.Horizontal = true

		_, err := Run(canceled, newTestImage(2, 2), Plan(s, nil))

		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("resize beyond the max dimension is rejected", func(t *testing.T) {
		s := Defaults()
		s.Scale = 2

		_, err := Run(ctx, newTestImage(40, 40), Plan(s, &Config{MaxDimension: 50}))

		assert.True(t, errors.Is(err, ErrBadTransformationRequest))
	})
}

func TestOrient(t *testing.T) {
	src := newTestImage(8, 4)

	assert.Equal(t, src, orient(src, topLeftSide))
	assert.Equal(t, image.Pt(4, 8), orient(src, rightSideTop).Bounds().Size())
	assert.Equal(t, image.Pt(4, 8), orient(src, leftSideBottom).Bounds().Size())
	assert.Equal(t, image.Pt(8, 4), orient(src, bottomRightSide).Bounds().Size())

	// the camera was turned right, the top left pixel belongs in the top right corner
	assert.Equal(t, src.At(0, 0), orient(src, rightSideTop).At(3, 0))
}
