package persist

import (
	"bytes"
	"context"
	"fmt"

	"github.com/EdoardoCarlesi/MetroCpp/treepb"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store persists clean trees to an S3 bucket/prefix, for runs whose
// output needs to survive past the lifetime of any one worker's local
// disk.
type S3Store struct {
	Bucket string
	Prefix string

	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

// NewS3Store builds an S3Store from a shared AWS session.
func NewS3Store(sess *session.Session, bucket, prefix string) *S3Store {
	return &S3Store{
		Bucket:     bucket,
		Prefix:     prefix,
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
	}
}

func (s *S3Store) key(key string) string {
	return s.Prefix + key + ".gob.gz"
}

// WriteCleanTree implements Store.
func (s *S3Store) WriteCleanTree(ctx context.Context, key string, records []treepb.MergerTreeRecord) error {
	data, err := encode(records)
	if err != nil {
		return err
	}
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("persist: upload s3://%s/%s: %w", s.Bucket, s.key(key), err)
	}
	return nil
}

// ReadCleanTree implements Store.
func (s *S3Store) ReadCleanTree(ctx context.Context, key string) ([]treepb.MergerTreeRecord, error) {
	buf := aws.NewWriteAtBuffer(nil)
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("persist: download s3://%s/%s: %w", s.Bucket, s.key(key), err)
	}
	return decode(bytes.NewReader(buf.Bytes()))
}
