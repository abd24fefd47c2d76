// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// uploaded images. It wraps the AWS SDK v2 and is configured for
// path-style access so it works against R2, CEPH, and MinIO endpoints.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client wraps an S3 client for image operations on a single bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// Object is the metadata returned for a stored file.
type Object struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
}

// Download holds a fetched object's content and metadata.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// New creates an S3 storage client with static credentials and path-style
// addressing. Returns (nil, nil) if endpoint or credentials are empty,
// allowing the app to start without storage.
func New(endpoint, region, accessKey, secretKey, bucket string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:     s3Client,
		bucket: bucket,
	}, nil
}

// Upload stores an object with its content type and an uploader-id tag in
// the object metadata.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, uploaderID int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-by": fmt.Sprintf("%d", uploaderID),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return nil
}

// Get retrieves an object. Returns (nil, nil) when the key does not exist.
// The caller must close Download.Body.
func (c *Client) Get(ctx context.Context, key string) (*Download, error) {
	output, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}

	d := &Download{Body: output.Body}
	if output.ContentType != nil {
		d.ContentType = *output.ContentType
	}
	if output.ContentLength != nil {
		d.Size = *output.ContentLength
	}
	return d, nil
}

// Delete removes an object. Deleting a missing key is not an error in S3.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// List returns up to limit objects in the bucket.
func (c *Client) List(ctx context.Context, limit int32) ([]Object, error) {
	output, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		MaxKeys: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 list: %w", err)
	}

	objects := make([]Object, 0, len(output.Contents))
	for _, obj := range output.Contents {
		o := Object{}
		if obj.Key != nil {
			o.Key = *obj.Key
		}
		if obj.Size != nil {
			o.Size = *obj.Size
		}
		if obj.LastModified != nil {
			o.Uploaded = *obj.LastModified
		}
		objects = append(objects, o)
	}
	return objects, nil
}
