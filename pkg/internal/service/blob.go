package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/snapvault/pkg/internal/storage/s3"
)

// BlobStore 抽象对象存储能力，便于在测试中替换实现.
type BlobStore interface {
	// Put 写入对象.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PresignedGet 生成限时下载地址，filename 用于 Content-Disposition.
	PresignedGet(ctx context.Context, key, filename string, expiry time.Duration) (*url.URL, error)
	// Remove 删除对象，对象不存在不报错.
	Remove(ctx context.Context, key string) error
}

// minioBlobStore 基于 MinIO 客户端的 BlobStore 实现.
type minioBlobStore struct {
	cli    *s3.Client
	bucket string
}

// NewMinioBlobStore 创建 MinIO BlobStore.
func NewMinioBlobStore(cli *s3.Client, bucket string) BlobStore {
	return &minioBlobStore{cli: cli, bucket: bucket}
}

func (m *minioBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}

	if _, err := m.cli.PutObject(ctx, m.bucket, key, r, size, opts); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	return nil
}

func (m *minioBlobStore) PresignedGet(ctx context.Context, key, filename string, expiry time.Duration) (*url.URL, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}

	u, err := m.cli.PresignedGetObject(ctx, m.bucket, key, expiry, params)
	if err != nil {
		return nil, &StorageError{Op: "presign", Key: key, Err: err}
	}

	return u, nil
}

func (m *minioBlobStore) Remove(ctx context.Context, key string) error {
	if err := m.cli.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return &StorageError{Op: "remove", Key: key, Err: err}
	}

	return nil
}
