package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/campaign-engine/internal/errs"
)

// S3BlobStore is the production Blob Store, backed by a single S3
// bucket keyed by blob_key. Grounded on the GetObject usage pattern in
// the teacher's internal/storage/aws.go GetFromS3Bucket.
type S3BlobStore struct {
	client *s3.Client
	bucket string
}

func NewS3BlobStore(client *s3.Client, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket}
}

func (s *S3BlobStore) Get(ctx context.Context, blobKey string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKey),
	})
	if err != nil {
		return nil, "", errs.NotFound(fmt.Errorf("get blob %s: %w", blobKey, err))
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, "", fmt.Errorf("read blob %s: %w", blobKey, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return buf.Bytes(), contentType, nil
}
