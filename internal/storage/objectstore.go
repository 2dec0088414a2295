package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/auditguard/embedding-go/internal/config"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore 对象存储客户端
// 当process请求不带raw_text时按存储key拉取原文
type ObjectStore struct {
	client *minio.Client
	bucket string
}

var globalStore *ObjectStore

// InitObjectStore 初始化MinIO客户端（可选）
func InitObjectStore() (*ObjectStore, error) {
	cfg := config.AppConfig
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	if !cfg.Storage.Enabled || cfg.Storage.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	globalStore = &ObjectStore{
		client: client,
		bucket: cfg.Storage.Bucket,
	}

	logger.Info("Object storage initialized",
		zap.String("endpoint", cfg.Storage.Endpoint),
		zap.String("bucket", cfg.Storage.Bucket))
	return globalStore, nil
}

// GetObjectStore 获取全局对象存储实例，未配置时返回nil
func GetObjectStore() *ObjectStore {
	return globalStore
}

// FetchText 按存储key读取文本内容
func (s *ObjectStore) FetchText(ctx context.Context, key string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return string(data), nil
}
