package kafka

import (
	"fmt"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// EnsureTopics 连接到第一个 broker，创建配置中尚不存在的主题。
func EnsureTopics(cfg *config.KafkaConfig, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("未配置 Kafka brokers")
	}
	if len(cfg.Topics) == 0 {
		return nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existing := make(map[string]struct{})
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	toCreate := MissingTopics(cfg.Topics, existing)
	if len(toCreate) == 0 {
		return nil
	}
	if err := conn.CreateTopics(toCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	log.WithField("count", len(toCreate)).Info("成功创建 Kafka 主题")
	return nil
}

// MissingTopics 返回 wanted 中不在 existing 里的主题配置，保持原顺序并去重。
func MissingTopics(wanted []string, existing map[string]struct{}) []kafka.TopicConfig {
	var out []kafka.TopicConfig
	seen := make(map[string]struct{})
	for _, name := range wanted {
		if _, ok := existing[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, kafka.TopicConfig{
			Topic:             name,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return out
}
