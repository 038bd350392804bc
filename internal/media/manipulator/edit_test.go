package manipulator

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()

	assert.Equal(t, Degrees(0), s.Rotation)
	assert.Equal(t, 1.0, s.Scale)
	assert.False(t, s.Flip.Horizontal)
	assert.False(t, s.Flip.Vertical)
	assert.Equal(t, Percent(100), s.Brightness)
	assert.Equal(t, Percent(100), s.Contrast)
	assert.Equal(t, Percent(100), s.Saturation)
	assert.Equal(t, Sigma(0), s.Blur)
	assert.False(t, s.Grayscale)
	assert.True(t, s.IsIdentity())
}

func TestEditState_With(t *testing.T) {
	t.Run("it returns a new state and leaves the original untouched", func(t *testing.T) {
		original := Defaults()

		changed, err := original.With(FieldBrightness, "120")
		require.NoError(t, err)

		assert.Equal(t, Percent(120), changed.Brightness)
		assert.Equal(t, Percent(100), original.Brightness)
		assert.False(t, changed.IsIdentity())
	})

	t.Run("it sets every field", func(t *testing.T) {
		s := Defaults()
		var err error
		for field, raw := range map[string]string{
			FieldRotation:   "-45",
			FieldScale:      "0.5",
			FieldFlipX:      "true",
			FieldFlipY:      "true",
			FieldBrightness: "110",
			FieldContrast:   "90",
			FieldSaturation: "0",
			FieldBlur:       "2.5",
			FieldGrayscale:  "true",
		} {
			s, err = s.With(field, raw)
			require.NoError(t, err, field)
		}

		assert.Equal(t, EditState{
			Rotation:   -45,
			Scale:      0.5,
			Flip:       Flip{Horizontal: true, Vertical: true},
			Brightness: 110,
			Contrast:   90,
			Saturation: 0,
			Blur:       2.5,
			Grayscale:  true,
		}, s)
	})

	t.Run("it rejects values that are not numbers", func(t *testing.T) {
		s, err := Defaults().With(FieldContrast, "a lot")

		require.Error(t, err)
		vErr, ok := err.(*ValidationError)
		require.True(t, ok)
		assert.Contains(t, vErr.Errors(), FieldContrast)
		assert.Equal(t, Defaults(), s)
	})

	t.Run("it rejects non finite numbers", func(t *testing.T) {
		_, err := Defaults().With(FieldScale, "Inf")
		assert.Error(t, err)

		_, err = Defaults().With(FieldRotation, "NaN")
		assert.Error(t, err)
	})

	t.Run("it rejects unknown fields", func(t *testing.T) {
		_, err := Defaults().With("sepia", "10")

		assert.True(t, errors.Is(err, ErrUnknownField))
	})
}

func TestEditState_Fields_CanBeNormalizedBack(t *testing.T) {
	s := EditState{
		Rotation:   90,
		Scale:      1.25,
		Flip:       Flip{Horizontal: true},
		Brightness: 80,
		Contrast:   130,
		Saturation: 55.5,
		Blur:       1,
		Grayscale:  false,
	}

	values := make(map[string][]string)
	for k, v := range s.Fields() {
		values[k] = []string{v}
	}

	assert.Equal(t, "90", s.Fields()[FieldRotation])
	assert.Equal(t, "false", s.Fields()[FieldFlipY])
	assert.Equal(t, s, Normalize(values))
}
