package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/denismitr/heroic/internal/media"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Put(_ context.Context, namespace, filename string, source io.Reader) (*Item, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, err
	}

	m.files[namespace+"/"+filename] = data

	return &Item{Path: namespace + "/" + filename, URL: "memory://" + namespace + "/" + filename}, nil
}

func (m *memoryStorage) Download(_ context.Context, dst io.Writer, namespace, filename string) error {
	data, ok := m.files[namespace+"/"+filename]
	if !ok {
		return errors.Wrapf(ErrStorageFailed, "%s/%s not found", namespace, filename)
	}

	_, err := dst.Write(data)
	return err
}

func TestParseLocation(t *testing.T) {
	valid := []struct {
		location, namespace, key string
	}{
		{"s3://photos/cat.png", "photos", "cat.png"},
		{"s3://photos/2024/summer/beach.jpg", "photos", "2024/summer/beach.jpg"},
		{"s3://photos/dir/", "photos", "dir"},
	}

	for _, tc := range valid {
		t.Run(tc.location, func(t *testing.T) {
			namespace, key, err := ParseLocation(tc.location)
			require.NoError(t, err)
			assert.Equal(t, tc.namespace, namespace)
			assert.Equal(t, tc.key, key)
		})
	}

	for _, location := range []string{"photos/cat.png", "s3://", "s3://photos", "s3://photos/", "s3:///cat.png"} {
		t.Run(location, func(t *testing.T) {
			_, _, err := ParseLocation(location)
			assert.True(t, errors.Is(err, ErrInvalidLocation))
		})
	}

	assert.True(t, IsLocation("s3://a/b"))
	assert.False(t, IsLocation("/tmp/a.png"))
}

func TestExporter_Export(t *testing.T) {
	s := newMemoryStorage()
	e := &Exporter{S: s, Namespace: "edits", Prefix: "user-1"}

	item, err := e.Export(context.Background(), media.Source{Filename: "Holiday Photo.JPG"}, []byte("png"))
	require.NoError(t, err)

	assert.Equal(t, "edits/user-1/holiday-photo-edited.png", item.Path)
	assert.Equal(t, []byte("png"), s.files["edits/user-1/holiday-photo-edited.png"])

	_, err = e.Export(context.Background(), media.Source{Filename: "a.png"}, nil)
	assert.True(t, errors.Is(err, ErrStorageFailed))
}

func TestFetch(t *testing.T) {
	s := newMemoryStorage()
	_, err := s.Put(context.Background(), "photos", "cat.png", bytes.NewReader([]byte("meow")))
	require.NoError(t, err)

	src, err := Fetch(context.Background(), s, "s3://photos/cat.png")
	require.NoError(t, err)
	assert.Equal(t, media.Source{Filename: "cat.png", Content: []byte("meow")}, src)

	_, err = Fetch(context.Background(), s, "s3://photos/dog.png")
	assert.True(t, errors.Is(err, ErrStorageFailed))
}
