package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lumina_shop/internal/model"
)

// ==================== 仓储接口 ====================

// AICallLogRepository AI调用日志仓储接口
type AICallLogRepository interface {
	Create(ctx context.Context, log *model.AICallLog) error
	GetByID(ctx context.Context, id int64) (*model.AICallLog, error)

	// 统计查询
	GetUsage(ctx context.Context, startTime, endTime time.Time) (*AIUsageStats, error)
	GetUsageBySession(ctx context.Context, sessionID string) (*AIUsageStats, error)
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsageStats, error)

	// 过期清理
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 统计结构 ====================

// AIUsageStats AI用量统计
type AIUsageStats struct {
	TotalCalls         int64   `json:"total_calls"`
	TotalPromptChars   int64   `json:"total_prompt_chars"`
	TotalResponseChars int64   `json:"total_response_chars"`
	TotalRecommended   int64   `json:"total_recommended"`
	AvgDurationMs      float64 `json:"avg_duration_ms"`
	SuccessCount       int64   `json:"success_count"`
	FailedCount        int64   `json:"failed_count"`
}

// DailyUsageStats 每日用量统计
type DailyUsageStats struct {
	Date        string `json:"date"`
	TotalCalls  int64  `json:"total_calls"`
	FailedCount int64  `json:"failed_count"`
}

const usageSelect = `
	COUNT(*) as total_calls,
	COALESCE(SUM(prompt_chars), 0) as total_prompt_chars,
	COALESCE(SUM(response_chars), 0) as total_response_chars,
	COALESCE(SUM(recommended_count), 0) as total_recommended,
	COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
	COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) as success_count,
	COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed_count
`

// ==================== 仓储实现 ====================

type aiCallLogRepo struct {
	db *gorm.DB
}

// NewAICallLogRepository 创建AI调用日志仓储
func NewAICallLogRepository(db *gorm.DB) AICallLogRepository {
	return &aiCallLogRepo{db: db}
}

func (r *aiCallLogRepo) Create(ctx context.Context, log *model.AICallLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *aiCallLogRepo) GetByID(ctx context.Context, id int64) (*model.AICallLog, error) {
	var log model.AICallLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// GetUsage 时间范围内的总用量，零值时间表示不限
func (r *aiCallLogRepo) GetUsage(ctx context.Context, startTime, endTime time.Time) (*AIUsageStats, error) {
	var stats AIUsageStats

	query := r.db.WithContext(ctx).Model(&model.AICallLog{})
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select(usageSelect).Scan(&stats).Error
	return &stats, err
}

func (r *aiCallLogRepo) GetUsageBySession(ctx context.Context, sessionID string) (*AIUsageStats, error) {
	var stats AIUsageStats

	err := r.db.WithContext(ctx).Model(&model.AICallLog{}).
		Where("session_id = ?", sessionID).
		Select(usageSelect).
		Scan(&stats).Error

	return &stats, err
}

func (r *aiCallLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsageStats, error) {
	var stats []DailyUsageStats

	err := r.db.WithContext(ctx).Model(&model.AICallLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_calls,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed_count
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}

// DeleteBefore 物理删除 before 之前的日志，返回删除条数
func (r *aiCallLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("created_at < ?", before).
		Delete(&model.AICallLog{})
	return result.RowsAffected, result.Error
}
