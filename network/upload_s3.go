package network

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	numUploadRetries = 3
	partSizeMB       = 10
	checksumMetadata = "sha256"
)

// S3UploadParams ...
type S3UploadParams struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Uploader stores every item as an object named Prefix + item name.
// Caption and attributes travel as object metadata.
type S3Uploader struct {
	client     *s3.Client
	bucket     string
	prefix     string
	retryWait  time.Duration
	partSizeMB int64
}

// NewS3Uploader ...
func NewS3Uploader(ctx context.Context, params S3UploadParams, logger log.Logger) (*S3Uploader, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("Bucket must not be empty")
	}

	cfg, err := loadAWSCredentials(
		ctx,
		params.Region,
		params.AccessKeyID,
		params.SecretAccessKey,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	return newS3Uploader(s3.NewFromConfig(*cfg), params.Bucket, params.Prefix), nil
}

func newS3Uploader(client *s3.Client, bucket, prefix string) *S3Uploader {
	return &S3Uploader{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		retryWait:  5 * time.Second,
		partSizeMB: partSizeMB,
	}
}

// Upload implements Uploader. An object of the same key, size and SHA-256
// checksum is taken as a previous upload of the item and left untouched.
func (u *S3Uploader) Upload(ctx context.Context, item Item, logger log.Logger) (Result, error) {
	key, err := validateKey(u.prefix+item.Name(), logger)
	if err != nil {
		return Result{}, fmt.Errorf("validate key: %w", err)
	}

	size, err := item.Size()
	if err != nil {
		return Result{}, err
	}
	if size == 0 {
		return Result{}, fmt.Errorf("%s: size must not be empty", item.Name())
	}

	checksum, err := itemChecksum(item)
	if err != nil {
		return Result{}, fmt.Errorf("checksum %s: %w", item.Name(), err)
	}

	existing, err := u.findObjectWithRetry(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("validate object: %w", err)
	}
	location := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	if existing.size == size && existing.checksum == checksum {
		logger.Debugf("Found object with the same checksum, skipping upload of %s", key)
		return Result{ID: key, Location: location}, nil
	}

	metadata, err := objectMetadata(item)
	if err != nil {
		return Result{}, err
	}
	metadata[checksumMetadata] = checksum

	logger.Debugf("Uploading %s...", key)
	if err := u.putObjectWithRetry(ctx, key, item, size, metadata); err != nil {
		return Result{}, fmt.Errorf("upload object: %w", err)
	}

	return Result{ID: key, Location: location}, nil
}

type objectInfo struct {
	size     int64
	checksum string
}

// findObjectWithRetry returns the size and stored checksum of the object at key.
// The size is -1 if there is no object.
func (u *S3Uploader) findObjectWithRetry(ctx context.Context, key string) (objectInfo, error) {
	info := objectInfo{size: -1}
	err := retry.Times(numUploadRetries).Wait(u.retryWait).TryWithAbort(func(attempt uint) (error, bool) {
		output, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var apiError smithy.APIError
			if errors.As(err, &apiError) {
				switch apiError.(type) {
				case *types.NotFound:
					// continue with upload
					return nil, true
				default:
					return fmt.Errorf("validating object: %w", err), false
				}
			}
			return fmt.Errorf("validating object: %w", err), false
		}

		if output.ContentLength != nil {
			info.size = *output.ContentLength
		}
		for k, v := range output.Metadata {
			if strings.EqualFold(k, checksumMetadata) {
				info.checksum = v
			}
		}
		return nil, true
	})

	return info, err
}

// itemChecksum returns the hex encoded SHA-256 of the item content.
func itemChecksum(item Item) (string, error) {
	body, err := item.Open()
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	hash := sha256.New()
	if _, err := io.Copy(hash, body); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (u *S3Uploader) putObjectWithRetry(ctx context.Context, key string, item Item, size int64, metadata map[string]string) error {
	return retry.Times(numUploadRetries).Wait(u.retryWait).TryWithAbort(func(attempt uint) (error, bool) {
		body, err := item.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", item.Name(), err), true
		}
		defer body.Close() //nolint:errcheck

		uploader := manager.NewUploader(u.client, func(m *manager.Uploader) {
			m.PartSize = u.partSizeMB * 1024 * 1024
		})

		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Body:          body,
			Bucket:        aws.String(u.bucket),
			Key:           aws.String(key),
			ContentType:   aws.String("application/octet-stream"),
			ContentLength: aws.Int64(size),
			Metadata:      metadata,
		})
		if err != nil {
			return fmt.Errorf("upload object: %w", err), false
		}

		return nil, true
	})
}

// objectMetadata encodes the presentation data of item. Metadata travels in
// headers, so the caption is query escaped.
func objectMetadata(item Item) (map[string]string, error) {
	attributes, err := json.Marshal(attributePayloads(item.Attributes()))
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return map[string]string{
		"caption":    url.QueryEscape(item.Caption()),
		"attributes": string(attributes),
	}, nil
}

func loadAWSCredentials(
	ctx context.Context,
	region string,
	accessKeyID string,
	secretKey string,
	logger log.Logger,
) (*aws.Config, error) {
	if region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
