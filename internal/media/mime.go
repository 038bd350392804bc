package media

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidExtension = errors.New("invalid extension")

const (
	JPEG Extension = "jpg"
	PNG  Extension = "png"
	GIF  Extension = "gif"
	TIFF Extension = "tiff"
	WEBP Extension = "webp"
	BMP  Extension = "bmp"
)

type Extension string

func (e Extension) String() string {
	return string(e)
}

var extensions = map[string]Extension{
	"png":  PNG,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"gif":  GIF,
	"tif":  TIFF,
	"tiff": TIFF,
	"webp": WEBP,
	"bmp":  BMP,
}

var mimes = map[Extension]string{
	PNG:  "image/png",
	JPEG: "image/jpeg",
	GIF:  "image/gif",
	TIFF: "image/tiff",
	WEBP: "image/webp",
	BMP:  "image/bmp",
}

func GuessMimeFromExtension(ext string) (string, error) {
	e, err := NormalizeExtension(ext)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidExtension, "mime type unsupported for %s", ext)
	}

	return mimes[e], nil
}

func NormalizeExtension(ext string) (Extension, error) {
	if e, ok := extensions[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return e, nil
	}

	return "", errors.Wrapf(ErrInvalidExtension, "extension unsupported: %s", ext)
}

// ExtensionFromFilename is NormalizeExtension over the filename suffix
func ExtensionFromFilename(filename string) (Extension, error) {
	return NormalizeExtension(filepath.Ext(strings.TrimSpace(filename)))
}

type signature struct {
	ext   Extension
	magic []byte
}

// bmp is left out, "BM" is too short to search for inside arbitrary bytes
var signatures = []signature{
	{ext: PNG, magic: []byte("\x89PNG\r\n\x1a\n")},
	{ext: JPEG, magic: []byte{0xFF, 0xD8, 0xFF}},
	{ext: GIF, magic: []byte("GIF87a")},
	{ext: GIF, magic: []byte("GIF89a")},
	{ext: WEBP, magic: []byte("RIFF")},
	{ext: TIFF, magic: []byte("II*\x00")},
	{ext: TIFF, magic: []byte("MM\x00*")},
}

// maximum distance into a payload to look for an image signature
const maxSignatureOffset = 4096

// Sniff looks for a known image signature within the first bytes of data
// and reports the format and the offset it starts at.
func Sniff(data []byte) (Extension, int, bool) {
	window := data
	if len(window) > maxSignatureOffset {
		window = window[:maxSignatureOffset]
	}

	best := -1
	var found Extension
	for _, s := range signatures {
		i := bytes.Index(window, s.magic)
		if i < 0 {
			continue
		}

		// RIFF size WEBP
		if s.ext == WEBP && (len(data) < i+12 || !bytes.Equal(data[i+8:i+12], []byte("WEBP"))) {
			continue
		}

		if best < 0 || i < best {
			best = i
			found = s.ext
		}
	}

	if best < 0 {
		return "", 0, false
	}

	return found, best, true
}
