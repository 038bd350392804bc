package s3storage

import "io"

// FakeWriterAt turns a plain writer into the io.WriterAt the s3 downloader needs.
// It only works with a downloader concurrency of 1.
type FakeWriterAt struct {
	w io.Writer
}

func (fw FakeWriterAt) WriteAt(p []byte, offset int64) (n int, err error) {
	return fw.w.Write(p)
}
