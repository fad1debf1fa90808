package miniostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/storage/object"
)

type Client struct {
	core      *minio.Client
	bucket    string
	publicURL string
}

var _ object.Store = (*Client)(nil)

func New(ctx context.Context, conf core.ObjectStoreConfig) (*Client, error) {
	cli, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, err
	}

	if err := ensureBucket(ctx, cli, conf.Bucket, conf.Region); err != nil {
		return nil, err
	}

	return &Client{core: cli, bucket: conf.Bucket, publicURL: conf.PublicURL}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (c *Client) PutObject(ctx context.Context, in object.UploadInput) (string, error) {
	_, err := c.core.PutObject(ctx, c.bucket, in.Key, in.Body, in.Size, minio.PutObjectOptions{ContentType: in.ContentType})
	if err != nil {
		return "", err
	}
	return c.objectURL(in.Key), nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	return c.core.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

func (c *Client) objectURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(c.publicURL, "/"), key)
	}

	endpoint := c.core.EndpointURL()
	if endpoint != nil {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint.String(), "/"), c.bucket, key)
	}

	return fmt.Sprintf("/%s/%s", c.bucket, key)
}
