package models

import "time"

// DefaultNote 是用户没有填写笔记时写入卡片的占位内容。
const DefaultNote = "No Note Yet"

// PlaceholderTitle 是没有来源时生成的空卡片标题。
const PlaceholderTitle = "Untitled"

// QnAPair 是针对卡片内容生成的一条问答。
type QnAPair struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// KnowledgeCard 代表一张持久化的知识卡片。
// EmbeddedVector 为空的卡片不参与聚类。
type KnowledgeCard struct {
	ID             string    `bson:"_id" json:"card_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	Title          string    `bson:"title" json:"title"`
	Summary        string    `bson:"summary" json:"summary"` // 渲染后的 HTML
	Tags           []string  `bson:"tags" json:"tags"`
	Category       []string  `bson:"category" json:"category"`
	Note           string    `bson:"note" json:"note"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	EmbeddedVector []float32 `bson:"embedded_vector,omitempty" json:"-"`
	SourceURL      string    `bson:"source_url" json:"source_url"`
	Thumbnail      string    `bson:"thumbnail" json:"thumbnail"`

	Favourite   bool   `bson:"favourite" json:"favourite"`
	Archive     bool   `bson:"archive" json:"archive"`
	Public      bool   `bson:"public" json:"public"`
	SharedToken string `bson:"shared_token,omitempty" json:"shared_token,omitempty"`

	Likes        int      `bson:"likes" json:"likes"`
	LikedBy      []string `bson:"liked_by" json:"liked_by"`
	BookmarkedBy []string `bson:"bookmarked_by" json:"bookmarked_by"`
	CopiedFrom   string   `bson:"copied_from,omitempty" json:"copied_from,omitempty"`
	CopiedBy     []string `bson:"copied_by" json:"copied_by"`

	QnA []QnAPair `bson:"qna,omitempty" json:"qna,omitempty"`
}

// Clusterable 判断卡片是否带有可用于聚类的向量。
func (c *KnowledgeCard) Clusterable() bool {
	return len(c.EmbeddedVector) > 0
}

// ContentChunk 是原始文本中按顺序切分出来的一段。
type ContentChunk struct {
	Index int
	Text  string
}
