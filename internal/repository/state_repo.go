package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lumina_shop/internal/model"
)

// ErrStateNotFound 键不存在
var ErrStateNotFound = errors.New("state key not found")

// ==================== 仓储接口 ====================

// StateRepository 购物状态键值仓储，值为原始 JSON
type StateRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ==================== 数据库实现 ====================

type stateRepo struct {
	db *gorm.DB
}

// NewStateRepository 创建基于数据库的状态仓储
func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepo{db: db}
}

func (r *stateRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var entry model.StateEntry
	err := r.db.WithContext(ctx).Where("state_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询状态失败: %w", err)
	}
	return []byte(entry.Value), nil
}

// Put 按键覆盖写入
func (r *stateRepo) Put(ctx context.Context, key string, value []byte) error {
	entry := model.StateEntry{
		Key:       key,
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("写入状态失败: %w", err)
	}
	return nil
}

func (r *stateRepo) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("state_key = ?", key).Delete(&model.StateEntry{}).Error; err != nil {
		return fmt.Errorf("删除状态失败: %w", err)
	}
	return nil
}
