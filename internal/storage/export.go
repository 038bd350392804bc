package storage

import (
	"bytes"
	"context"

	"github.com/denismitr/heroic/internal/media"
	"github.com/pkg/errors"
)

// Exporter stores edited images under a url friendly name derived from the source
type Exporter struct {
	S         Storage
	Namespace string
	Prefix    string
}

func (e *Exporter) Export(ctx context.Context, source media.Source, edited []byte) (*Item, error) {
	if len(edited) == 0 {
		return nil, errors.Wrap(ErrStorageFailed, "nothing to export")
	}

	key := media.ComputeExportPath(e.Prefix, media.EditedFilename(source.Filename))

	item, err := e.S.Put(ctx, e.Namespace, key, bytes.NewReader(edited))
	if err != nil {
		return nil, errors.Wrapf(err, "could not export %s", source.Filename)
	}

	return item, nil
}

// Fetch downloads a source image from an s3:// location
func Fetch(ctx context.Context, s Storage, location string) (media.Source, error) {
	namespace, key, err := ParseLocation(location)
	if err != nil {
		return media.Source{}, err
	}

	buf := &bytes.Buffer{}
	if err := s.Download(ctx, buf, namespace, key); err != nil {
		return media.Source{}, err
	}

	return media.Source{Filename: key, Content: buf.Bytes()}, nil
}
