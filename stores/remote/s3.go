package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/botirk38/embedcache/types"
)

// deleteBatchSize is the S3 DeleteObjects per-request limit.
const deleteBatchSize = 1000

// S3Store implements ByteStore on an S3 bucket, one object per key under an
// optional object-key prefix. Object writes are atomic, so a reader never sees
// a partial entry. Works against S3-compatible services via the Endpoint
// override.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3 client from the config and verifies bucket access.
// Credentials fall back to the default AWS chain when not set explicitly.
func NewS3Store(ctx context.Context, config types.StoreConfig) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 store requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(config.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %q: %w", config.Bucket, err)
	}

	return &S3Store{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

// MGet fetches one object per key in request order, nil for absent keys.
func (s *S3Store) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		if err != nil {
			var noSuchKey *s3types.NoSuchKey
			if errors.As(err, &noSuchKey) {
				continue
			}
			return nil, fmt.Errorf("failed to read entry %q from S3: %w", key, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %q from S3: %w", key, err)
		}
		out[i] = data
	}
	return out, nil
}

// MSet uploads one object per pair. Each PutObject is atomic on the S3 side.
func (s *S3Store) MSet(ctx context.Context, pairs []types.KV) error {
	for _, p := range pairs {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(p.Key)),
			Body:   bytes.NewReader(p.Value),
		})
		if err != nil {
			return fmt.Errorf("failed to write entry %q to S3: %w", p.Key, err)
		}
	}
	return nil
}

// Exists issues one HeadObject per key.
func (s *S3Store) Exists(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, key := range keys {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(key)),
		})
		if err != nil {
			var notFound *s3types.NotFound
			if errors.As(err, &notFound) {
				continue
			}
			return nil, fmt.Errorf("failed to check entry %q in S3: %w", key, err)
		}
		out[i] = true
	}
	return out, nil
}

// Delete removes the objects for the given keys in DeleteObjects batches.
// Missing keys are ignored by S3.
func (s *S3Store) Delete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(s.objectKey(key))})
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete entries from S3: %w", err)
		}
	}
	return nil
}

// YieldKeys pages through ListObjectsV2 under the composed prefix, stripping
// the store-level prefix so callers see cache keys.
func (s *S3Store) YieldKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(s.prefix + prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield("", fmt.Errorf("failed to list entries in S3: %w", err))
				return
			}
			for _, obj := range page.Contents {
				key, ok := strings.CutPrefix(aws.ToString(obj.Key), s.prefix)
				if !ok {
					continue
				}
				if !yield(key, nil) {
					return
				}
			}
		}
	}
}

// Close is a no-op; the S3 client holds no persistent connection state that
// needs explicit release.
func (s *S3Store) Close() error { return nil }
