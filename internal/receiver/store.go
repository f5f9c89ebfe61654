package receiver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/scan-io-git/lintgraph/internal/config"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/files"
)

// Store persists received files under a bare file name.
type Store interface {
	// Save writes data under name, replacing any previous file of that name,
	// and returns where it was written.
	Save(ctx context.Context, name string, data []byte) (string, error)
	String() string
}

// NewStore builds the backend selected by cfg.Storage.
func NewStore(cfg config.Receiver) (Store, error) {
	switch cfg.Storage {
	case "", config.StorageLocal:
		return NewLocalStore(cfg.UploadFolder)
	case config.StorageS3:
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}
}

// LocalStore writes files into a single folder.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	dir, err := files.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrPersistence, "%v", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, name string, data []byte) (string, error) {
	target := filepath.Join(s.dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", shrderrors.Wrap(shrderrors.ErrPersistence, "could not save file %q to %q: %v", name, target, err)
	}
	return target, nil
}

func (s *LocalStore) String() string { return "local:" + s.dir }

// s3Uploader is the part of s3manager.Uploader the store relies on.
type s3Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Store uploads files to a bucket under an optional key prefix.
type S3Store struct {
	bucket   string
	prefix   string
	uploader s3Uploader
}

// NewS3Store creates an uploader from the default credential chain.
func NewS3Store(cfg config.S3) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return newS3Store(cfg, s3manager.NewUploader(sess)), nil
}

func newS3Store(cfg config.S3, uploader s3Uploader) *S3Store {
	return &S3Store{bucket: cfg.Bucket, prefix: cfg.Prefix, uploader: uploader}
}

func (s *S3Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	key := path.Join(s.prefix, name)
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			return "", shrderrors.Wrap(shrderrors.ErrPersistence, "s3 upload of %q failed (%s): %s", key, aerr.Code(), aerr.Message())
		}
		return "", shrderrors.Wrap(shrderrors.ErrPersistence, "s3 upload of %q failed: %v", key, err)
	}
	return out.Location, nil
}

func (s *S3Store) String() string { return "s3://" + path.Join(s.bucket, s.prefix) }
