package models

import "time"

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser   SpeakerRole = "user"  // 用户角色。
	SpeakerModel  SpeakerRole = "model" // 模型角色。
	SpeakerSystem SpeakerRole = "system"
)

// Content 包含了构成单个消息的多个部分。
type Content struct {
	Parts []*Part     `json:"parts,omitempty"`
	Role  SpeakerRole `json:"role,omitempty"`
}

// Part 是消息的一个片段。卡片流水线只发送和接收文本。
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content []Content `json:"content,omitempty"`
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`
	CreateTime   time.Time `json:"createTime,omitempty"`
	ResponseID   string    `json:"responseId,omitempty"`
	ModelVersion string    `json:"modelVersion,omitempty"`
}

// NewTextRequest 用单条用户文本构造请求。
func NewTextRequest(prompt string) *GenerateContentRequest {
	return &GenerateContentRequest{
		Content: []Content{{
			Role:  SpeakerUser,
			Parts: []*Part{{Text: prompt}},
		}},
	}
}

// Text 拼接响应中第一个候选的全部文本片段。
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Content[0].Parts {
		if p != nil {
			out += p.Text
		}
	}
	return out
}
