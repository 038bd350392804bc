package manipulator

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/denismitr/heroic/internal/media"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maximum distance into image to look for EXIF tags
const maxExifSize = 1 << 20

// decode does its best to get an image out of the payload. When the header
// is not where it should be, it searches for a known signature and retries
// from there. The EXIF orientation of jpeg and tiff sources is applied.
// Sources whose header declares more than the configured size are refused
// before any pixel buffer is allocated.
func decode(data []byte, cfg *Config) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.Wrap(ErrBadImage, "empty payload")
	}

	img, format, err := decodeBounded(data, cfg)
	if errors.Is(err, ErrBadImage) {
		return nil, "", err
	}

	if err != nil {
		ext, offset, ok := media.Sniff(data)
		if !ok || offset == 0 {
			return nil, "", errors.Wrap(ErrBadImage, err.Error())
		}

		data = data[offset:]
		var retryErr error
		img, format, retryErr = decodeBounded(data, cfg)
		if errors.Is(retryErr, ErrBadImage) {
			return nil, "", retryErr
		}

		if retryErr != nil {
			return nil, "", errors.Wrapf(ErrBadImage, "%v; %s found at offset %d: %v", err, ext, offset, retryErr)
		}
	}

	if originalFormatIsJpegOrTiff(format) {
		exifData := data
		if len(exifData) > maxExifSize {
			exifData = exifData[:maxExifSize]
		}

		img = orient(img, computeExifOrientation(bytes.NewReader(exifData)))
	}

	return img, format, nil
}

// decodeBounded reads the header first. Plain decode failures are returned as they are,
// a header over the limits comes back as ErrBadImage and must not be retried.
func decodeBounded(data []byte, cfg *Config) (image.Image, string, error) {
	header, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	if err := cfg.checkSource(header.Width, header.Height); err != nil {
		return nil, "", errors.Wrapf(err, "%s source", format)
	}

	return image.Decode(bytes.NewReader(data))
}

// encode writes the image as a lossless png
func encode(dst io.Writer, img image.Image) error {
	if err := imaging.Encode(dst, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return errors.Wrapf(ErrTransformationFailed, "could not encode png: %v", err)
	}

	return nil
}

// Exif Orientation Tag values
// http://sylvana.net/jpegcrop/exif_orientation.html
const (
	topLeftSide     = 1
	topRightSide    = 2
	bottomRightSide = 3
	bottomLeftSide  = 4
	leftSideTop     = 5
	rightSideTop    = 6
	rightSideBottom = 7
	leftSideBottom  = 8
)

func computeExifOrientation(r io.Reader) int {
	exf, err := exif.Decode(r)
	if err != nil {
		return topLeftSide
	}

	tag, err := exf.Get(exif.Orientation)
	if err != nil {
		return topLeftSide
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return topLeftSide
	}

	return orientation
}

func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case topRightSide:
		return imaging.FlipH(img)
	case bottomRightSide:
		return imaging.Rotate180(img)
	case bottomLeftSide:
		return imaging.FlipV(img)
	case leftSideTop:
		return imaging.Transpose(img)
	case rightSideTop:
		return imaging.Rotate270(img)
	case rightSideBottom:
		return imaging.Transverse(img)
	case leftSideBottom:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func originalFormatIsJpegOrTiff(f string) bool {
	return f == "jpeg" || f == "tiff"
}
