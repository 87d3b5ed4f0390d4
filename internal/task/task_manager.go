package task

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// 默认调度
const (
	DefaultCouponSweepCron  = "0 0 * * * *"  // 每小时整点
	DefaultLogRetentionCron = "0 30 3 * * *" // 每天 03:30
	DefaultLogRetentionDays = 30
	DefaultSessionSweepCron = "0 */10 * * * *" // 每 10 分钟
	DefaultSessionIdleTTL   = 2 * time.Hour
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	couponTask *CouponExpiryTask
	logTask    *LogRetentionTask
	sweepTask  *SessionSweepTask
	logger     *zap.Logger
}

// TaskManagerDeps 任务管理器依赖，为 nil 的依赖对应任务不启用
type TaskManagerDeps struct {
	Catalog     CouponExpirer
	CallLogRepo CallLogPruner
	Sessions    map[string]IdleEvicter // 会话注册表，按名称
	Logger      *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CouponEnabled   bool
	CouponSweepCron string

	LogRetentionEnabled bool
	LogRetentionCron    string
	LogRetentionDays    int

	SessionSweepEnabled bool
	SessionSweepCron    string
	SessionIdleTTL      time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CouponEnabled:   true,
		CouponSweepCron: DefaultCouponSweepCron,

		LogRetentionEnabled: true,
		LogRetentionCron:    DefaultLogRetentionCron,
		LogRetentionDays:    DefaultLogRetentionDays,

		SessionSweepEnabled: true,
		SessionSweepCron:    DefaultSessionSweepCron,
		SessionIdleTTL:      DefaultSessionIdleTTL,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaskManager{logger: logger.With(zap.String("component", "task_manager"))}

	if cfg.CouponEnabled && deps.Catalog != nil {
		tm.couponTask = NewCouponExpiryTask(deps.Catalog, cfg.CouponSweepCron, logger)
	}
	if cfg.LogRetentionEnabled && deps.CallLogRepo != nil {
		tm.logTask = NewLogRetentionTask(deps.CallLogRepo, cfg.LogRetentionCron, cfg.LogRetentionDays, logger)
	}
	if cfg.SessionSweepEnabled && len(deps.Sessions) > 0 {
		tm.sweepTask = NewSessionSweepTask(deps.Sessions, cfg.SessionSweepCron, cfg.SessionIdleTTL, logger)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务，任一任务注册失败时停止已启动的任务
func (tm *TaskManager) Start() error {
	tm.logger.Info("正在启动定时任务...")

	if tm.couponTask != nil {
		if err := tm.couponTask.Start(); err != nil {
			return err
		}
	}
	if tm.logTask != nil {
		if err := tm.logTask.Start(); err != nil {
			tm.Stop()
			return err
		}
	}
	if tm.sweepTask != nil {
		if err := tm.sweepTask.Start(); err != nil {
			tm.Stop()
			return err
		}
	}

	tm.logger.Info("定时任务已全部启动", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.couponTask != nil {
		tm.couponTask.Stop()
	}
	if tm.logTask != nil {
		tm.logTask.Stop()
	}
	if tm.sweepTask != nil {
		tm.sweepTask.Stop()
	}
	tm.logger.Info("定时任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerCouponSweep 立即执行一次优惠券过期检查
func (tm *TaskManager) TriggerCouponSweep() (int, error) {
	if tm.couponTask == nil {
		return 0, fmt.Errorf("coupon_expiry: %w", ErrTaskDisabled)
	}
	return tm.couponTask.RunOnce(), nil
}

// TriggerSessionSweep 立即清理一次空闲会话
func (tm *TaskManager) TriggerSessionSweep() (map[string]int, error) {
	if tm.sweepTask == nil {
		return nil, fmt.Errorf("session_sweep: %w", ErrTaskDisabled)
	}
	return tm.sweepTask.RunOnce(), nil
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"coupon_expiry": tm.couponTask != nil,
		"log_retention": tm.logTask != nil,
		"session_sweep": tm.sweepTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
