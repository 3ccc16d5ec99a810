package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/notes-bin/slotbed/internal/config"
)

// ObjectStore 对象存储，PublicURL 必须是纯字符串推导，不做任何 I/O
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	RemoveMany(ctx context.Context, keys []string) error
	PublicURL(key string) string
}

type s3Store struct {
	client *s3.Client
	cfg    *config.S3Config
}

func NewS3Store(cfg *config.S3Config) (ObjectStore, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				URL:               endpointURL(cfg),
				HostnameImmutable: true,
				Source:            aws.EndpointSourceCustom,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	store := &s3Store{client: client, cfg: cfg}

	// bucket 不存在时尝试创建，失败只告警
	if err := store.ensureBucketExists(context.Background()); err != nil {
		slog.Warn("Failed to ensure bucket exists", "bucket", cfg.BucketName, "error", err)
	}

	return store, nil
}

func (s *s3Store) ensureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.BucketName),
	})
	if err == nil {
		return nil
	}

	slog.Info("Creating bucket", "bucket", s.cfg.BucketName)
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.cfg.BucketName),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.cfg.Region),
		},
	})
	return err
}

func (s *s3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.BucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		slog.Error("Failed to upload object", "key", key, "error", err)
		return err
	}
	slog.Info("Object uploaded", "key", key, "size", size)
	return nil
}

// RemoveMany 批量删除，容忍部分失败：单个对象删不掉只记日志
func (s *s3Store) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, len(keys))
	for i, key := range keys {
		objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
	}
	output, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.cfg.BucketName),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		slog.Error("Failed to delete objects", "count", len(keys), "error", err)
		return err
	}
	for _, e := range output.Errors {
		slog.Warn("Object not deleted", "key", aws.ToString(e.Key), "message", aws.ToString(e.Message))
	}
	return nil
}

// PublicURL 从路径推导公开访问地址，纯字符串拼接
func (s *s3Store) PublicURL(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = endpointURL(s.cfg)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), s.cfg.BucketName, key)
}

func endpointURL(cfg *config.S3Config) string {
	if strings.Contains(cfg.Endpoint, "://") {
		return cfg.Endpoint
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}
