// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// privateFolders hold objects that are never served without a signed link.
var privateFolders = []string{proofFolder}

// proofExtensions lists the receipt formats accepted at checkout.
var proofExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf"}

// BlobStore is the blob storage used for product images and payment proofs.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

var _ BlobStore = (*StorageService)(nil)

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Local disk for development, served under /uploads
		if err := os.MkdirAll(config.Storage.LocalDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// UsesS3 reports whether objects go to S3 rather than the local directory.
func (s *StorageService) UsesS3() bool {
	return s.s3Client != nil
}

// UploadFile stores a multipart upload under a generated name in options.Folder.
func (s *StorageService) UploadFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, header.Size, options.MaxSize)
	}

	if err := checkExtension(header.Filename, options.AllowedTypes); err != nil {
		return nil, err
	}

	filename, err := s.generateFileName(header.Filename, options.Folder)
	if err != nil {
		return nil, err
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return s.put(ctx, filename, fileBytes, contentTypeOf(header.Header.Get("Content-Type"), fileBytes), options.IsPublic)
}

// Put stores data under the exact key given.
func (s *StorageService) Put(ctx context.Context, key string, data []byte, contentType string) (*UploadResult, error) {
	return s.put(ctx, key, data, contentTypeOf(contentType, data), false)
}

func (s *StorageService) put(ctx context.Context, key string, data []byte, contentType string, isPublic bool) (*UploadResult, error) {
	if s.s3Client != nil {
		return s.uploadToS3(ctx, data, key, contentType, isPublic)
	}
	return s.uploadToLocal(data, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if isPublic {
		params.ACL = aws.String("public-read")
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	filePath, err := s.localPath(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(filePath, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      s.localURL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	if s.s3Client == nil {
		filePath, err := s.localPath(key)
		if err != nil {
			return err
		}
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// DeleteByURL removes an object previously returned by an upload. URLs that
// do not belong to this storage are ignored.
func (s *StorageService) DeleteByURL(ctx context.Context, url string) error {
	key, ok := s.KeyFromURL(url)
	if !ok {
		logrus.WithField("url", url).Debug("Skipping delete of foreign URL")
		return nil
	}
	return s.Delete(ctx, key)
}

func (s *StorageService) KeyFromURL(url string) (string, bool) {
	var prefixes []string
	if s.s3Client != nil {
		prefixes = append(prefixes, s.getS3URL(""))
		if s.config.AWS.CloudFrontURL != "" {
			prefixes = append(prefixes, strings.TrimRight(s.config.AWS.CloudFrontURL, "/")+"/")
		}
	} else {
		prefixes = append(prefixes, s.localURL(""))
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(url, prefix) && len(url) > len(prefix) {
			return strings.TrimPrefix(url, prefix), true
		}
	}
	return "", false
}

// GeneratePresignedURL links to key for expiration. Local objects get a
// signed token checked by LocalFile.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		token, err := utils.GenerateFileToken(key, expiration)
		if err != nil {
			return "", fmt.Errorf("failed to sign file link: %w", err)
		}
		return s.localURL(key) + "?token=" + token, nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// LocalFile resolves an object in the local upload directory for serving.
// Objects in private folders require a token issued for that exact key.
func (s *StorageService) LocalFile(key, token string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" {
		return "", ErrFileNotFound
	}

	if isPrivateKey(key) {
		granted, err := utils.ValidateFileToken(token)
		if err != nil || granted != key {
			return "", ErrFileNotFound
		}
	}

	filePath, err := s.localPath(key)
	if err != nil {
		return "", ErrFileNotFound
	}
	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrFileNotFound
	}
	return filePath, nil
}

func isPrivateKey(key string) bool {
	for _, folder := range privateFolders {
		if strings.HasPrefix(key, folder+"/") {
			return true
		}
	}
	return false
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "products":
		return UploadOptions{
			Folder:       "products",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			IsPublic:     true,
		}
	case "categories":
		return UploadOptions{
			Folder:       "categories",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp"},
			IsPublic:     true,
		}
	default:
		return UploadOptions{
			Folder:       "general",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
			IsPublic:     false,
		}
	}
}

func (s *StorageService) generateFileName(originalName, folder string) (string, error) {
	suffix, err := utils.GenerateRandomString(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, suffix, ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename), nil
	}

	return filename, nil
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.AWS.CloudFrontURL, "/"), key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

func (s *StorageService) localURL(key string) string {
	return strings.TrimRight(s.config.Storage.PublicBaseURL, "/") + "/uploads/" + key
}

func (s *StorageService) localPath(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.config.Storage.LocalDir, clean), nil
}

func (s *StorageService) ValidateImage(file multipart.File) error {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}

	if !isValidImageType(buffer[:n]) {
		return ErrInvalidImage
	}

	return nil
}

func isValidImageType(buffer []byte) bool {
	switch http.DetectContentType(buffer) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

func checkExtension(filename string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	fileExt := strings.ToLower(filepath.Ext(filename))
	for _, allowedType := range allowed {
		if fileExt == allowedType {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, fileExt)
}

// proofContentType sniffs a payment proof and returns its type when it is
// an image or a PDF.
func proofContentType(filename string, data []byte) (string, error) {
	if err := checkExtension(filename, proofExtensions); err != nil {
		return "", err
	}
	if isValidImageType(data) {
		return http.DetectContentType(data), nil
	}
	if http.DetectContentType(data) == "application/pdf" {
		return "application/pdf", nil
	}
	return "", ErrFileTypeNotAllowed
}

func contentTypeOf(declared string, data []byte) string {
	if declared != "" {
		return declared
	}
	return http.DetectContentType(data)
}
