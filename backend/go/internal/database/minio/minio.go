package minio

import (
	"context"
	"fmt"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Connect 创建 MinIO 客户端，并确保配置的存储桶存在。
// cfg.Endpoint 为空时返回 (nil, nil)，表示不保存上传原件。
func Connect(ctx context.Context, cfg *config.MinIOConfig, log *logger.Logger) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("无法创建 MinIO 客户端: %w", err)
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("MinIO 初始化健康检查失败: %w", err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建存储桶 '%s' 失败: %w", cfg.Bucket, err)
		}
		log.WithField("bucket", cfg.Bucket).Info("已创建 MinIO 存储桶")
	}

	log.WithField("endpoint", cfg.Endpoint).Info("成功连接到 MinIO")
	return c, nil
}
