package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CallLogPruner 按时间清理调用日志
type CallLogPruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// LogRetentionTask 定时清理超过保留期的导购调用日志
type LogRetentionTask struct {
	repo      CallLogPruner
	schedule  string
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewLogRetentionTask retentionDays <= 0 时使用默认保留天数
func NewLogRetentionTask(repo CallLogPruner, schedule string, retentionDays int, logger *zap.Logger) *LogRetentionTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultLogRetentionCron
	}
	if retentionDays <= 0 {
		retentionDays = DefaultLogRetentionDays
	}
	return &LogRetentionTask{
		repo:      repo,
		schedule:  schedule,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		cron:      cron.New(cron.WithSeconds()),
		now:       time.Now,
		logger:    logger.With(zap.String("task", "log_retention")),
	}
}

// Start 启动定时任务，首次清理放到后台执行
func (t *LogRetentionTask) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	_, err := t.cron.AddFunc(t.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, _ = t.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("注册日志清理任务失败: %w", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, _ = t.RunOnce(ctx)
	}()

	t.cron.Start()
	t.running = true
	t.logger.Info("日志清理任务已启动", zap.String("cron", t.schedule), zap.Duration("retention", t.retention))
	return nil
}

func (t *LogRetentionTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	<-t.cron.Stop().Done()
	t.running = false
	t.logger.Info("日志清理任务已停止")
}

// RunOnce 删除保留期之前的日志
func (t *LogRetentionTask) RunOnce(ctx context.Context) (int64, error) {
	cutoff := t.now().Add(-t.retention)
	n, err := t.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		t.logger.Error("清理调用日志失败", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		t.logger.Info("已清理过期调用日志", zap.Int64("count", n), zap.Time("before", cutoff))
	}
	return n, nil
}
