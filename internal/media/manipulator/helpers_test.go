package manipulator

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestImage draws an opaque image where every pixel is distinct enough
// to catch misplaced pixels after geometric transforms
func newTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 2),
				G: uint8(y * 3),
				B: uint8(x + y),
				A: 255,
			})
		}
	}

	return img
}

func newSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))

	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err, "output must be a decodable png")

	return img
}

func rgba8(c color.Color) (uint8, uint8, uint8, uint8) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B, n.A
}

func assertSamePixels(t *testing.T, expected, actual image.Image) {
	t.Helper()

	if !assert.Equal(t, expected.Bounds().Size(), actual.Bounds().Size()) {
		return
	}

	eb, ab := expected.Bounds(), actual.Bounds()
	for y := 0; y < eb.Dy(); y++ {
		for x := 0; x < eb.Dx(); x++ {
			er, eg, ebl, ea := rgba8(expected.At(eb.Min.X+x, eb.Min.Y+y))
			ar, ag, abl, aa := rgba8(actual.At(ab.Min.X+x, ab.Min.Y+y))
			if er != ar || eg != ag || ebl != abl || ea != aa {
				t.Fatalf("pixel (%d,%d) differs: expected %v got %v", x, y,
					[]uint8{er, eg, ebl, ea}, []uint8{ar, ag, abl, aa})
			}
		}
	}
}

// pngHeader is a png signature plus an IHDR chunk and nothing else.
// Its declared size costs nothing to send, only decoding would allocate it.
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // truecolor with alpha

	chunk := append([]byte("IHDR"), ihdr...)

	buf := &bytes.Buffer{}
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))

	return buf.Bytes()
}

// jpegWithOrientation encodes img as jpeg with an EXIF APP1 segment carrying only the orientation tag
func jpegWithOrientation(t *testing.T, img image.Image, orientation uint16) []byte {
	t.Helper()

	encoded := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(encoded, img, &jpeg.Options{Quality: 100}))

	tiff := &bytes.Buffer{}
	tiff.WriteString("II")
	_ = binary.Write(tiff, binary.LittleEndian, uint16(42))
	_ = binary.Write(tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(tiff, binary.LittleEndian, uint16(1))      // one entry
	_ = binary.Write(tiff, binary.LittleEndian, uint16(0x0112)) // orientation
	_ = binary.Write(tiff, binary.LittleEndian, uint16(3))      // SHORT
	_ = binary.Write(tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(tiff, binary.LittleEndian, orientation)
	_ = binary.Write(tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(tiff, binary.LittleEndian, uint32(0)) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	out := &bytes.Buffer{}
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(encoded.Bytes()[2:])

	return out.Bytes()
}
