package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SnapshotStorage handles uploading rendered design previews to S3
type SnapshotStorage struct {
	s3Client   *s3.S3
	bucketName string
	region     string
	cdnURL     string
}

// NewSnapshotStorage creates a new snapshot storage client
func NewSnapshotStorage(region, bucketName, cdnURL string) (*SnapshotStorage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &SnapshotStorage{
		s3Client:   s3.New(sess),
		bucketName: bucketName,
		region:     region,
		cdnURL:     cdnURL,
	}, nil
}

// UploadPreview uploads a rendered design preview PNG and returns its public URL.
// The timestamp suffix keeps every published revision addressable.
func (s *SnapshotStorage) UploadPreview(pngData []byte, storeID, designID string) (string, error) {
	key := fmt.Sprintf("previews/%s/%s_%d.png", storeID, designID, time.Now().Unix())

	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:       aws.String(s.bucketName),
		Key:          aws.String(key),
		Body:         bytes.NewReader(pngData),
		ContentType:  aws.String("image/png"),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload preview to S3: %w", err)
	}

	return s.getCDNURL(key), nil
}

// DeletePreview removes a preview image from S3
func (s *SnapshotStorage) DeletePreview(previewURL string) error {
	key := s.extractKeyFromURL(previewURL)
	if key == "" {
		return fmt.Errorf("could not extract key from URL: %s", previewURL)
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete preview from S3: %w", err)
	}

	return nil
}

// getCDNURL returns the public URL for a given S3 key
func (s *SnapshotStorage) getCDNURL(key string) string {
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cdnURL, "/"), key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}

// extractKeyFromURL pulls the S3 object key out of a preview URL
func (s *SnapshotStorage) extractKeyFromURL(url string) string {
	idx := strings.Index(url, "previews/")
	if idx == -1 {
		// Fall back to the bare filename for legacy URLs
		base := filepath.Base(url)
		if base == "." || base == "/" {
			return ""
		}
		return base
	}
	return url[idx:]
}
