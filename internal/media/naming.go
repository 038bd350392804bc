package media

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// EditedFilename builds a url friendly name for the edited version of an upload.
// Edits are always png, so the original extension is dropped.
func EditedFilename(original string) string {
	base := strings.TrimSpace(filepath.Base(original))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}

	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "image"
	}

	return name + "-edited." + PNG.String()
}

// ComputeExportPath is the storage key of an exported edit
func ComputeExportPath(namespace, filename string) string {
	namespace = strings.Trim(namespace, "/ ")
	if namespace == "" {
		return filename
	}

	return namespace + "/" + filename
}
