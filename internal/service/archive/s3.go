package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var _ Store = (*S3Store)(nil)

// S3Store writes objects to an S3 or S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3Store with static credentials. A custom endpoint
// switches to path-style addressing, which most S3-compatible services need.
func NewS3Store(bucket string, opts Options) (*S3Store, error) {
	if opts.S3AccessKeyID == "" || opts.S3SecretAccessKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required")
	}
	region := opts.AWSRegion
	if region == "" {
		region = "us-east-1"
	}
	o := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(opts.S3AccessKeyID, opts.S3SecretAccessKey, ""),
	}
	if opts.S3Endpoint != "" {
		endpoint := opts.S3Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}
	return &S3Store{client: s3.New(o), bucket: bucket}, nil
}

// Put uploads body to key.
func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
