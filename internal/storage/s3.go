package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Uploader handles image uploads to AWS S3
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// UploadProductImage uploads a product image to S3 with proper naming and metadata
func (u *S3Uploader) UploadProductImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, storeID string) (*UploadResult, error) {
	imageData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	// Generate unique key for the image
	fileID := uuid.New().String()
	extension := strings.ToLower(filepath.Ext(header.Filename))
	if extension == "" {
		extension = ".jpg"
	}

	// Use organized folder structure: products/{year}/{month}/{storeID}/{fileID}.jpg
	now := time.Now()
	key := fmt.Sprintf("products/%d/%02d/%s/%s%s",
		now.Year(), now.Month(), storeID, fileID, extension)

	return u.putImage(ctx, key, imageData, extension, map[string]string{
		"store-id":          storeID,
		"original-filename": header.Filename,
		"upload-timestamp":  now.Format(time.RFC3339),
		"file-type":         "product-image",
	})
}

// UploadStoreLogo uploads a store logo to S3
func (u *S3Uploader) UploadStoreLogo(ctx context.Context, file multipart.File, header *multipart.FileHeader, storeID string) (*UploadResult, error) {
	imageData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	fileID := uuid.New().String()
	extension := strings.ToLower(filepath.Ext(header.Filename))
	if extension == "" {
		extension = ".png"
	}

	key := fmt.Sprintf("logos/%s/%s%s", storeID, fileID, extension)

	return u.putImage(ctx, key, imageData, extension, map[string]string{
		"store-id":          storeID,
		"original-filename": header.Filename,
		"upload-timestamp":  time.Now().Format(time.RFC3339),
		"file-type":         "store-logo",
	})
}

// UploadDesignAsset uploads a banner or image-block asset used by the design studio
func (u *S3Uploader) UploadDesignAsset(ctx context.Context, file multipart.File, header *multipart.FileHeader, storeID string) (*UploadResult, error) {
	imageData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	fileID := uuid.New().String()
	extension := strings.ToLower(filepath.Ext(header.Filename))
	if extension == "" {
		extension = ".jpg"
	}

	key := fmt.Sprintf("designs/%s/assets/%s%s", storeID, fileID, extension)

	return u.putImage(ctx, key, imageData, extension, map[string]string{
		"store-id":          storeID,
		"original-filename": header.Filename,
		"upload-timestamp":  time.Now().Format(time.RFC3339),
		"file-type":         "design-asset",
	})
}

// putImage uploads an image payload under the given key
func (u *S3Uploader) putImage(ctx context.Context, key string, imageData []byte, extension string, metadata map[string]string) (*UploadResult, error) {
	putObjectInput := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(getContentTypeForImage(extension)),

		// Images are immutable once uploaded; replacements get new keys
		CacheControl: aws.String("public, max-age=86400"),

		Metadata: metadata,

		// Note: No ACL - bucket policy should handle public access
	}

	_, err := u.client.PutObject(ctx, putObjectInput)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key)

	return &UploadResult{
		Key:    key,
		URL:    publicURL,
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(imageData)),
	}, nil
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}

// getContentTypeForImage returns the appropriate MIME type for image extensions
func getContentTypeForImage(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}
