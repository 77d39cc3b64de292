package upload

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vango-dev/livehooks/internal/errors"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object metadata keys written by S3Store.
const (
	metaName     = "original-filename"
	metaUploaded = "upload-time"
)

// S3Store stores uploads in an S3 bucket under prefix.
//
//	client := s3.New(s3.Options{Region: "us-east-1", Credentials: creds})
//	store := upload.NewS3Store(client, "my-bucket", "uploads/", 50<<20)
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
	clock   clockwork.Clock
}

// NewS3Store creates a store. maxSize 0 means no limit.
func NewS3Store(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
		clock:   clockwork.NewRealClock(),
	}
}

// WithClock sets the clock used for upload times and Cleanup.
func (s *S3Store) WithClock(c clockwork.Clock) *S3Store {
	s.clock = c
	return s
}

// Save implements Store. The body is buffered so the SDK can sign and
// retry it.
func (s *S3Store) Save(ctx context.Context, name, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}
	var buf bytes.Buffer
	if _, err := limitCopy(&buf, r, s.maxSize); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref := uuid.NewString()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + ref),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			metaName:     name,
			metaUploaded: s.clock.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", errors.New(errors.CodeUploadStore).WithDetail("put " + s.bucket).Wrap(err)
	}
	return ref, nil
}

// Claim implements Store. The object is deleted when the reader is
// closed.
func (s *S3Store) Claim(ctx context.Context, ref string) (*File, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	key := s.prefix + ref
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}

	f := &File{
		Ref:         ref,
		Name:        ref,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	for k, v := range out.Metadata {
		if strings.EqualFold(k, metaName) {
			f.Name = v
		}
	}
	f.Reader = &deleteObjectOnClose{ReadCloser: out.Body, store: s, key: key}
	return f, nil
}

// Cleanup implements Store.
func (s *S3Store) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := s.clock.Now().Add(-maxAge)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var expired []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return errors.New(errors.CodeUploadStore).WithDetail("list " + s.bucket).Wrap(err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) && obj.Key != nil {
				expired = append(expired, *obj.Key)
			}
		}
	}
	for _, key := range expired {
		if err := s.delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.New(errors.CodeUploadStore).WithDetail("delete " + key).Wrap(err)
	}
	return nil
}

type deleteObjectOnClose struct {
	io.ReadCloser
	store *S3Store
	key   string
}

func (r *deleteObjectOnClose) Close() error {
	err := r.ReadCloser.Close()
	if derr := r.store.delete(context.Background(), r.key); err == nil {
		err = derr
	}
	return err
}
