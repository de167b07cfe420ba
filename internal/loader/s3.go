package loader

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds credentials for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type s3Source struct{}

func (s3Source) CanOpen(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), "s3://")
}

// Open downloads s3://bucket/key and decodes it by the key's extension.
func (s3Source) Open(ctx context.Context, location string, opt Options) (*Dataset, error) {
	bucket, key, err := splitS3(location)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(opt.S3)
	if err != nil {
		return nil, err
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%s: object not found", location)
		}
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	ds, err := decode(path.Base(key), data, opt)
	if err != nil {
		return nil, err
	}
	ds.Source = location
	return ds, nil
}

func splitS3(location string) (bucket, key string, err error) {
	rest := location[len("s3://"):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q (want s3://bucket/key)", location)
	}
	return bucket, key, nil
}

func newS3Client(cfg S3Config) (*minio.Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return client, nil
}
