package manipulator

import (
	"bytes"
	"context"
	"io"

	"github.com/denismitr/heroic/internal/media"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxDimension caps the width and height of sources and of what an edit may produce
	DefaultMaxDimension = 10000
	// DefaultMaxPixels caps width*height of a source, about 160MB once decoded to NRGBA
	DefaultMaxPixels = 40_000_000
)

type Config struct {
	// MaxDimension is the largest side a source may have or a resize may produce, 0 means DefaultMaxDimension
	MaxDimension int
	// MaxPixels is the largest area a source may have, 0 means DefaultMaxPixels
	MaxPixels int
}

func (cfg *Config) maxDimension() int {
	if cfg == nil || cfg.MaxDimension <= 0 {
		return DefaultMaxDimension
	}

	return cfg.MaxDimension
}

func (cfg *Config) maxPixels() int {
	if cfg == nil || cfg.MaxPixels <= 0 {
		return DefaultMaxPixels
	}

	return cfg.MaxPixels
}

// checkSource validates the size a source header declares
func (cfg *Config) checkSource(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrBadImage, "declared size %dx%d is empty", width, height)
	}

	if maxSide := cfg.maxDimension(); width > maxSide || height > maxSide {
		return errors.Wrapf(ErrBadImage, "declared size %dx%d, max side is %d", width, height, maxSide)
	}

	if maxPixels := cfg.maxPixels(); int64(width)*int64(height) > int64(maxPixels) {
		return errors.Wrapf(ErrBadImage, "declared size %dx%d, max area is %d pixels", width, height, maxPixels)
	}

	return nil
}

// Manipulator decodes an image, runs the edit pipeline over it and encodes the result as png
type Manipulator struct {
	cfg *Config
}

func New(cfg *Config) *Manipulator {
	if cfg == nil {
		cfg = &Config{}
	}

	return &Manipulator{cfg: cfg}
}

type Result struct {
	Width        int
	Height       int
	Size         int
	SourceFormat string
	Steps        []string
}

// Edit reads the whole source, applies the state and writes a png to dst.
// Nothing is written to dst unless every step succeeded.
func (m *Manipulator) Edit(ctx context.Context, source io.Reader, dst io.Writer, s EditState) (*Result, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, errors.Wrap(ErrBadImage, err.Error())
	}

	img, format, err := decode(data, m.cfg)
	if err != nil {
		return nil, err
	}

	steps := Plan(s, m.cfg)

	edited, err := Run(ctx, img, steps)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := encode(buf, edited); err != nil {
		return nil, err
	}

	n, err := io.Copy(dst, buf)
	if err != nil {
		return nil, errors.Wrapf(ErrTransformationFailed, "could not copy bytes to dst; %v", err)
	}

	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.Name)
	}

	return &Result{
		Width:        edited.Bounds().Dx(),
		Height:       edited.Bounds().Dy(),
		Size:         int(n),
		SourceFormat: format,
		Steps:        names,
	}, nil
}

// Render is Edit over an in-memory source, it lets the manipulator stand in for the remote editor
func (m *Manipulator) Render(ctx context.Context, source media.Source, s EditState) ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := m.Edit(ctx, bytes.NewReader(source.Content), buf, s); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
