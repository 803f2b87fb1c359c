package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 上传原件存放的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topics  []string `yaml:"topics"`  // 需要自动创建的主题列表
}

// DatabaseConfigs 包含所有外部存储的配置。
// 地址为空的存储视为未启用。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`
	MinIO   MinIOConfig `yaml:"minio"`
	MongoDB MongoConfig `yaml:"mongodb"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// AuthConfig 只负责校验令牌；令牌的签发由外部用户服务完成。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ProviderConfig 描述一个模型提供商的访问方式。
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string         `yaml:"provider"` // "gemini", "openai" 或 "ollama"
	Gemini   ProviderConfig `yaml:"gemini"`
	OpenAI   ProviderConfig `yaml:"openai"`
	Ollama   ProviderConfig `yaml:"ollama"`
}

// EmbeddingConfig 包含了 Embedding 提供商的配置。
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "gemini", "openai", "ollama" 或 "huggingface"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	BaseURL   string `yaml:"baseURL"`
	Dimension int    `yaml:"dimension"` // 向量维度，0 表示由第一次成功的调用决定
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket"
	PerUser     bool              `yaml:"perUser"`   // 为每个用户单独维护一个限流器
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// CardServiceConfig 是卡片服务自身的配置。
type CardServiceConfig struct {
	ServerAddress     string `yaml:"serverAddress"`
	CardCollection    string `yaml:"cardCollection"`
	ClusterCollection string `yaml:"clusterCollection"`
	ReclusterTopic    string `yaml:"reclusterTopic"` // 为空时重新聚类在请求内同步执行
	MaxUploadBytes    int64  `yaml:"maxUploadBytes"`
}

// ClusterWorkerConfig 是离线聚类 worker 的配置。
type ClusterWorkerConfig struct {
	GroupID string `yaml:"groupID"`
}

// IngestionConfig 控制一次卡片生成流水线的各个阶段。
type IngestionConfig struct {
	ChunkSize          int      `yaml:"chunkSize"`
	MaxTags            int      `yaml:"maxTags"`
	MinTranscriptWords int      `yaml:"minTranscriptWords"`
	FetchTimeout       string   `yaml:"fetchTimeout"`
	ChallengeWait      string   `yaml:"challengeWait"`
	GenerationTimeout  string   `yaml:"generationTimeout"`
	EmbeddingTimeout   string   `yaml:"embeddingTimeout"`
	VideoHosts         []string `yaml:"videoHosts"` // glob 模式，例如 "*.youtube.com"
	UserAgent          string   `yaml:"userAgent"`
	OfficeLicenseKey   string   `yaml:"officeLicenseKey"` // unioffice 的 metered license key
}

// ClusteringConfig 控制 DBSCAN 与聚类结果的命名。
type ClusteringConfig struct {
	Eps               float64 `yaml:"eps"`
	MinSamples        int     `yaml:"minSamples"`
	MiscTopicName     string  `yaml:"miscTopicName"`
	FallbackTopicName string  `yaml:"fallbackTopicName"`
	LockTTL           string  `yaml:"lockTTL"`
	TopicCacheSize    int     `yaml:"topicCacheSize"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App           AppInfo             `yaml:"app"`
	Auth          AuthConfig          `yaml:"auth"`
	LLM           LLMConfig           `yaml:"llm"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Logger        LoggerConfig        `yaml:"logger"`
	Databases     DatabaseConfigs     `yaml:"databases"`
	Middleware    MiddlewareConfig    `yaml:"middleware"`
	CardService   CardServiceConfig   `yaml:"cardService"`
	ClusterWorker ClusterWorkerConfig `yaml:"clusterWorker"`
	Ingestion     IngestionConfig     `yaml:"ingestion"`
	Clustering    ClusteringConfig    `yaml:"clustering"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，并补齐默认值。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 为未填写的字段设置默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.CardService.ServerAddress == "" {
		c.CardService.ServerAddress = ":8080"
	}
	if c.CardService.CardCollection == "" {
		c.CardService.CardCollection = "knowledge_cards"
	}
	if c.CardService.ClusterCollection == "" {
		c.CardService.ClusterCollection = "clusters"
	}
	if c.CardService.MaxUploadBytes == 0 {
		c.CardService.MaxUploadBytes = 32 << 20
	}
	if c.ClusterWorker.GroupID == "" {
		c.ClusterWorker.GroupID = "cluster-worker-group"
	}

	in := &c.Ingestion
	if in.ChunkSize <= 0 {
		in.ChunkSize = 6000
	}
	if in.MaxTags <= 0 {
		in.MaxTags = 5
	}
	if in.MinTranscriptWords <= 0 {
		in.MinTranscriptWords = 10
	}
	if in.FetchTimeout == "" {
		in.FetchTimeout = "30s"
	}
	if in.ChallengeWait == "" {
		in.ChallengeWait = "10s"
	}
	if in.GenerationTimeout == "" {
		in.GenerationTimeout = "60s"
	}
	if in.EmbeddingTimeout == "" {
		in.EmbeddingTimeout = "20s"
	}
	if len(in.VideoHosts) == 0 {
		in.VideoHosts = []string{"www.youtube.com", "youtube.com", "m.youtube.com", "youtu.be"}
	}
	if in.UserAgent == "" {
		in.UserAgent = "Mozilla/5.0 (compatible; SynapseBot/1.0)"
	}

	cl := &c.Clustering
	if cl.Eps <= 0 {
		cl.Eps = 0.2
	}
	if cl.MinSamples <= 0 {
		cl.MinSamples = 3
	}
	if cl.MiscTopicName == "" {
		cl.MiscTopicName = "Miscellaneous"
	}
	if cl.FallbackTopicName == "" {
		cl.FallbackTopicName = "Unnamed Topic"
	}
	if cl.LockTTL == "" {
		cl.LockTTL = "2m"
	}
	if cl.TopicCacheSize <= 0 {
		cl.TopicCacheSize = 512
	}
}

// Validate 检查所有时长字段是否可以解析。
func (c *AppConfig) Validate() error {
	durations := map[string]string{
		"ingestion.fetchTimeout":      c.Ingestion.FetchTimeout,
		"ingestion.challengeWait":     c.Ingestion.ChallengeWait,
		"ingestion.generationTimeout": c.Ingestion.GenerationTimeout,
		"ingestion.embeddingTimeout":  c.Ingestion.EmbeddingTimeout,
		"clustering.lockTTL":          c.Clustering.LockTTL,
	}
	for field, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("配置项 %s 不是合法的时长 '%s': %w", field, value, err)
		}
	}
	if c.Clustering.Eps > 2 {
		return fmt.Errorf("clustering.eps 必须在 (0, 2] 范围内, 当前为 %v", c.Clustering.Eps)
	}
	return nil
}

// Duration 解析一个已经校验过的时长字段；解析失败时返回 fallback。
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
