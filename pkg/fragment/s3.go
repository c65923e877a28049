package fragment

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectGetter is the part of *s3.Client that S3Source uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source fetches fragments from an S3 bucket. The object key is Prefix
// followed by the fetch key without its leading slash.
//
// Example usage:
//
//	client := fragment.NewS3Client("us-east-1", "")
//	src := fragment.NewS3Source(client, "site-fragments", "flags/")
type S3Source struct {
	client   ObjectGetter
	bucket   string
	prefix   string
	maxBytes int64
}

// NewS3Source creates a source reading from bucket under prefix.
func NewS3Source(client ObjectGetter, bucket, prefix string) *S3Source {
	return &S3Source{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		maxBytes: DefaultMaxBytes,
	}
}

// NewS3Client builds an S3 client with anonymous credentials, for public
// buckets. A non-empty endpoint selects path-style addressing, as needed
// by S3-compatible stores.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: aws.AnonymousCredentials{},
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// ObjectKey returns the object key used for key.
func (s *S3Source) ObjectKey(key string) string {
	return s.prefix + strings.TrimPrefix(key, "/")
}

// Fetch implements Source.
func (s *S3Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, notFound(key)
		}
		return nil, fetchFailed(key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, s.maxBytes+1))
	if err != nil {
		return nil, fetchFailed(key, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fetchFailed(key, stderrors.New("object exceeds size limit"))
	}
	return body, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if stderrors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
