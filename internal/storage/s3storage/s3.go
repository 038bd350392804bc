package s3storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/denismitr/heroic/internal/media"
	"github.com/denismitr/heroic/internal/storage"
	"github.com/pkg/errors"
)

// S3 limits object keys to 1024 bytes
const maxKeyLength = 1024

type Config struct {
	AccessKey        string
	AccessSecret     string
	AccessToken      string
	Region           string
	Endpoint         string
	S3ForcePathStyle bool
	EnableSSL        bool
}

type RemoteStorage struct {
	cfg  Config
	sess *session.Session
}

func New(cfg Config) (*RemoteStorage, error) {
	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.AccessSecret, cfg.AccessToken),
		Region:           aws.String(cfg.Region),
		DisableSSL:       aws.Bool(!cfg.EnableSSL),
		S3ForcePathStyle: aws.Bool(cfg.S3ForcePathStyle),
	}

	if cfg.Endpoint != "" {
		s3Config.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, errors.Wrapf(storage.ErrStorageFailed, "s3 session could not be created: %v", err)
	}

	return &RemoteStorage{cfg: cfg, sess: sess}, nil
}

// Put uploads the file, creating the namespace bucket when it does not exist yet
func (rs *RemoteStorage) Put(ctx context.Context, namespace, filename string, source io.Reader) (*storage.Item, error) {
	if !isValidKey(filename) {
		return nil, errors.Wrapf(storage.ErrStorageFailed, "invalid key %q", filename)
	}

	if err := rs.ensureNamespace(ctx, namespace); err != nil {
		return nil, err
	}

	uploader := s3manager.NewUploader(rs.sess)
	uploader.Concurrency = 1

	result, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Body:        source,
		Bucket:      aws.String(namespace),
		Key:         aws.String(filename),
		ContentType: aws.String(contentType(filename)),
	})

	if err != nil {
		return nil, errors.Wrapf(
			storage.ErrStorageFailed,
			"could not upload file %s to namespace %s: %v",
			filename, namespace, err,
		)
	}

	return &storage.Item{
		Path: namespace + "/" + filename,
		URL:  result.Location,
	}, nil
}

func (rs *RemoteStorage) Download(ctx context.Context, dst io.Writer, namespace, filename string) error {
	downloader := s3manager.NewDownloader(rs.sess)
	// sequential parts let FakeWriterAt ignore offsets
	downloader.Concurrency = 1

	w := FakeWriterAt{w: dst}
	_, err := downloader.DownloadWithContext(ctx, w,
		&s3.GetObjectInput{
			Bucket: aws.String(namespace),
			Key:    aws.String(filename),
		})

	if err != nil {
		return errors.Wrapf(
			storage.ErrStorageFailed,
			"could not download file %s from namespace %s: %v",
			filename, namespace, err,
		)
	}

	return nil
}

func (rs *RemoteStorage) ensureNamespace(ctx context.Context, namespace string) error {
	client := s3.New(rs.sess)

	_, err := client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(namespace)})
	if err == nil {
		return nil
	}

	if aErr, ok := err.(awserr.Error); ok {
		switch aErr.Code() {
		case s3.ErrCodeBucketAlreadyExists, s3.ErrCodeBucketAlreadyOwnedByYou:
			return nil
		}
	}

	return errors.Wrapf(storage.ErrStorageFailed, "could not create namespace %s: %v", namespace, err)
}

func isValidKey(key string) bool {
	if key == "" || len(key) > maxKeyLength || strings.HasPrefix(key, "/") {
		return false
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}

	return true
}

func contentType(filename string) string {
	if mime, err := media.GuessMimeFromExtension(path.Ext(filename)); err == nil {
		return mime
	}

	return "application/octet-stream"
}
