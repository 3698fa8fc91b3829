package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"closetapi/config"
)

type AWSServiceProvider interface {
	PresignUpload(ctx context.Context, objectKey string) (string, error)
	PresignRead(ctx context.Context, objectKey string) (string, error)
	UploadToPresignedURL(ctx context.Context, url string, content []byte) (int, error)
}

// AWSService presigns and uploads against a Cloudflare R2 bucket through the S3 API.
type AWSService struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	http    *http.Client
}

func NewAWSService(ctx context.Context, cfg config.R2Config) (*AWSService, error) {
	if cfg.AccountID == "" || cfg.BucketName == "" {
		return nil, errors.New("R2_ACCOUNT_ID and R2_BUCKET_NAME are required")
	}

	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID),
		}, nil
	})
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &AWSService{
		presign: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		bucket:  cfg.BucketName,
		expiry:  cfg.PresignExpiry,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (s *AWSService) PresignUpload(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return request.URL, nil
}

func (s *AWSService) PresignRead(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign read: %w", err)
	}
	return request.URL, nil
}

// UploadToPresignedURL PUTs an image and returns the storage status code.
func (s *AWSService) UploadToPresignedURL(ctx context.Context, url string, content []byte) (int, error) {
	mimeType, ok := DetectImageMime(content)
	if !ok {
		return 0, fmt.Errorf("unsupported file type: %s", mimeType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(content))
	if err != nil {
		return 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error uploading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
