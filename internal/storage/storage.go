package storage

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var ErrStorageFailed = errors.New("storage failed")
var ErrInvalidLocation = errors.New("invalid storage location")

type Item struct {
	Path string
	URL  string
}

// Storage keeps exported edits and the sources they were made from
type Storage interface {
	Put(ctx context.Context, namespace, filename string, source io.Reader) (*Item, error)
	Download(ctx context.Context, dst io.Writer, namespace, filename string) error
}

// ParseLocation splits s3://namespace/path/to/file into namespace and key
func ParseLocation(location string) (namespace, key string, err error) {
	rest := strings.TrimPrefix(location, "s3://")
	if rest == location {
		return "", "", errors.Wrapf(ErrInvalidLocation, "%q must start with s3://", location)
	}

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || strings.Trim(parts[1], "/") == "" {
		return "", "", errors.Wrapf(ErrInvalidLocation, "%q must look like s3://namespace/key", location)
	}

	return parts[0], strings.Trim(parts[1], "/"), nil
}

// IsLocation reports whether the path points into storage rather than the local disk
func IsLocation(path string) bool {
	return strings.HasPrefix(path, "s3://")
}
