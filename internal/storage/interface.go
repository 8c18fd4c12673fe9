package storage

import (
	"context"
	"mime/multipart"
)

// ImageUploader defines the interface for storefront image uploads
type ImageUploader interface {
	UploadProductImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, storeID string) (*UploadResult, error)
	UploadStoreLogo(ctx context.Context, file multipart.File, header *multipart.FileHeader, storeID string) (*UploadResult, error)
	UploadDesignAsset(ctx context.Context, file multipart.File, header *multipart.FileHeader, storeID string) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

// Ensure S3Uploader implements the interface
var _ ImageUploader = (*S3Uploader)(nil)
