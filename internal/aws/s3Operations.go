package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Creating Dependency
type S3Service struct {
	client     *s3.Client
	bucketName string
}

// Using Constructor Pattern to initalize our s3Service
func NewS3Service(client *s3.Client, bucketName string) *S3Service {
	return &S3Service{client: client, bucketName: bucketName}
}

func (service *S3Service) BucketName() string {
	return service.bucketName
}

// ListKeys returns every object key currently in the bucket. The watcher
// diffs this against what it has already announced.
func (service *S3Service) ListKeys(parentCtx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(parentCtx, 1*time.Minute)
	defer cancel()

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(service.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(service.bucketName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("couldn't list objects in bucket %s, AWS error: %w", service.bucketName, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}
