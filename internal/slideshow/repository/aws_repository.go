package repository

import (
	"context"
	"fmt"

	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of *s3.Client used here.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type awsRepository struct {
	client s3API
}

func NewAwsRepository(awsClient *s3.Client) slideshow.AWSRepository {
	return &awsRepository{client: awsClient}
}

func (a *awsRepository) PutObject(ctx context.Context, input models.UploadInput) error {
	if input.BucketName == "" || input.Key == "" {
		return fmt.Errorf("bucket and key are required")
	}
	params := &s3.PutObjectInput{
		Bucket: aws.String(input.BucketName),
		Key:    aws.String(input.Key),
		Body:   input.File,
	}
	if input.ContentType != "" {
		params.ContentType = aws.String(input.ContentType)
	}
	if input.Size > 0 {
		params.ContentLength = aws.Int64(input.Size)
	}
	if _, err := a.client.PutObject(ctx, params); err != nil {
		return fmt.Errorf("failed to upload file : %w", err)
	}
	return nil
}
