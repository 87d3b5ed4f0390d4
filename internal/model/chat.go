package model

// ChatRole 对话角色
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage 导购对话消息，不持久化
type ChatMessage struct {
	ID                      string   `json:"id"`
	Role                    ChatRole `json:"role"`
	Text                    string   `json:"text"`
	IsProductRecommendation bool     `json:"isProductRecommendation"`
	RecommendedProductIDs   []int64  `json:"recommendedProductIds"`
}

// Clone 深拷贝
func (m ChatMessage) Clone() ChatMessage {
	out := m
	out.RecommendedProductIDs = append([]int64{}, m.RecommendedProductIDs...)
	return out
}
