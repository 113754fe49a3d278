package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3 struct {
	uploader *manager.Uploader
	bucket   string
}

func NewS3(client manager.UploadAPIClient, bucket string) *S3 {
	return &S3{uploader: manager.NewUploader(client), bucket: bucket}
}

func (s *S3) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3) Bucket() string {
	return s.bucket
}

func (s *S3) Backend() string {
	return "S3"
}
