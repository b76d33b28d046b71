// Package storage is a small object store over S3/MinIO, with an in-memory
// implementation for local runs and tests.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("forest/storage")

// Sentinel errors for storage operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")

	// ErrTooManyObjects indicates a prefix holds more objects than a listing may return
	ErrTooManyObjects = errors.New("too many objects under prefix")
)

// MaxObjectsPerPrefix bounds a single listing so memory use stays predictable.
const MaxObjectsPerPrefix = 20000

// ObjectStore is the subset of object storage the service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// S3Storage handles object storage operations
type S3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3Storage connects to the bucket. The bucket must already exist.
func NewS3Storage(config S3Config) (*S3Storage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist: create it before starting the server", config.BucketName)
	}

	return &S3Storage{client: client, bucket: config.BucketName}, nil
}

// Put writes data under key, replacing any existing object.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "storage.put",
		trace.WithAttributes(
			attribute.String("storage.key", key),
			attribute.Int("object.size", len(data)),
		))
	defer span.End()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		recordError(span, err)
		return classifyStorageError(err, "put")
	}
	return nil
}

// Get reads the object at key.
func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "storage.get",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		recordError(span, err)
		return nil, classifyStorageError(err, "get")
	}
	defer object.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(object)
	if err != nil {
		recordError(span, err)
		return nil, classifyStorageError(err, "get")
	}

	span.SetAttributes(attribute.Int("object.size", len(data)))
	return data, nil
}

// List returns the keys under prefix in lexicographic order.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "storage.list",
		trace.WithAttributes(attribute.String("storage.prefix", prefix)))
	defer span.End()

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			recordError(span, obj.Err)
			return nil, classifyStorageError(obj.Err, "list")
		}
		keys = append(keys, obj.Key)
		if len(keys) > MaxObjectsPerPrefix {
			err := fmt.Errorf("list: %w (limit: %d)", ErrTooManyObjects, MaxObjectsPerPrefix)
			recordError(span, err)
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("objects.count", len(keys)))
	return keys, nil
}

// DeletePrefix removes every object under prefix and returns how many were removed.
func (s *S3Storage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	ctx, span := tracer.Start(ctx, "storage.delete_prefix",
		trace.WithAttributes(attribute.String("storage.prefix", prefix)))
	defer span.End()

	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(objects)
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			objects <- obj
		}
	}()

	deleted := 0
	for obj := range objects {
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			recordError(span, err)
			// Drain so the lister goroutine can exit.
			for range objects {
			}
			return deleted, fmt.Errorf("failed to delete %s: %w", obj.Key, classifyStorageError(err, "delete"))
		}
		deleted++
	}

	select {
	case err := <-listErr:
		recordError(span, err)
		return deleted, classifyStorageError(err, "list")
	default:
	}

	span.SetAttributes(attribute.Int("objects.deleted", deleted))
	return deleted, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// classifyStorageError examines a storage error and returns an appropriate sentinel error
func classifyStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
	}

	if containsAny(err.Error(), "connection", "timeout", "network", "dial", "refused") {
		return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
