package models

// Cluster 是一个用户的卡片在一次聚类运行中得到的主题分组。
// 同一次运行产生的各个 Cluster 的成员互不相交。
type Cluster struct {
	ID               string    `bson:"_id" json:"cluster_id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	CentroidVector   []float32 `bson:"centroid_vector" json:"-"`
	KnowledgeCardIDs []string  `bson:"knowledge_card_ids" json:"knowledge_card_ids"`
	TopicName        string    `bson:"topic_name" json:"topic_name"`
}

// ReclusterStatus 描述一次重新聚类的结果。
type ReclusterStatus string

const (
	ReclusterRecomputed       ReclusterStatus = "recomputed"
	ReclusterInsufficientData ReclusterStatus = "insufficient_data"
)

// ReclusterOutcome 是重新聚类的返回值。
// InsufficientData 是正常结果而不是错误，此时存储不会被修改。
type ReclusterOutcome struct {
	Status       ReclusterStatus `json:"status"`
	ClusterCount int             `json:"cluster_count"`
	Eligible     int             `json:"eligible_cards"`
}

// ReclusterRequest 是通过 Kafka 投递给聚类 worker 的消息。
type ReclusterRequest struct {
	UserID      string `json:"user_id"`
	RequestedAt int64  `json:"requested_at"`
}
