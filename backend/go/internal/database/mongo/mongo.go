package mongo

import (
	"context"
	"fmt"
	"time"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect 建立到 MongoDB 的连接并 Ping 确认可用。
// 返回的客户端由调用方负责 Disconnect。
func Connect(ctx context.Context, cfg *config.MongoConfig, log *logger.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.Address)
	// 如果配置了用户名和密码，则设置认证信息。
	if cfg.Username != "" && cfg.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("无法连接到 MongoDB: %w", err)
	}
	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("无法 Ping MongoDB: %w", err)
	}

	log.WithField("address", cfg.Address).Info("成功连接到 MongoDB")
	return c, nil
}

// EnsureIndexes 为卡片和聚类集合创建按用户查询所需的索引。
func EnsureIndexes(ctx context.Context, db *mongo.Database, cardCollection, clusterCollection string) error {
	cardIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection(cardCollection).Indexes().CreateMany(ctx, cardIdx); err != nil {
		return fmt.Errorf("创建卡片索引失败: %w", err)
	}
	clusterIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := db.Collection(clusterCollection).Indexes().CreateMany(ctx, clusterIdx); err != nil {
		return fmt.Errorf("创建聚类索引失败: %w", err)
	}
	return nil
}
