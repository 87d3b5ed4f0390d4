package model

// AICallLog 导购助手调用日志
type AICallLog struct {
	BaseModel

	// 关联
	SessionID string `gorm:"size:64;index;comment:会话ID"`

	// 调用信息
	Transport string `gorm:"size:16;comment:传输方式(sdk/rest)"`
	ModelName string `gorm:"size:64;comment:模型名称"`

	// 用量统计
	PromptChars      int `gorm:"default:0;comment:提示词字符数"`
	ResponseChars    int `gorm:"default:0;comment:回复字符数"`
	RecommendedCount int `gorm:"default:0;comment:推荐商品数"`

	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息"`
}

func (AICallLog) TableName() string {
	return "ai_call_logs"
}

// ==================== 状态常量 ====================

const (
	AICallStatusSuccess = "success"
	AICallStatusFailed  = "failed"
)
