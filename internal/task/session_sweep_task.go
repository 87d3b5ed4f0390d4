package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleEvicter 丢弃空闲会话
type IdleEvicter interface {
	EvictIdle(before time.Time) int
}

// SessionSweepTask 定时从内存中清理长时间未访问的会话
type SessionSweepTask struct {
	evicters map[string]IdleEvicter
	schedule string
	idleTTL  time.Duration
	cron     *cron.Cron
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewSessionSweepTask evicters 以名称区分，用于日志
func NewSessionSweepTask(evicters map[string]IdleEvicter, schedule string, idleTTL time.Duration, logger *zap.Logger) *SessionSweepTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultSessionSweepCron
	}
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	return &SessionSweepTask{
		evicters: evicters,
		schedule: schedule,
		idleTTL:  idleTTL,
		cron:     cron.New(cron.WithSeconds()),
		now:      time.Now,
		logger:   logger.With(zap.String("task", "session_sweep")),
	}
}

// Start 按 cron 执行，启动时内存中没有会话，不做首次执行
func (t *SessionSweepTask) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	if _, err := t.cron.AddFunc(t.schedule, func() { t.RunOnce() }); err != nil {
		return fmt.Errorf("注册会话清理任务失败: %w", err)
	}

	t.cron.Start()
	t.running = true
	t.logger.Info("会话清理任务已启动", zap.String("cron", t.schedule), zap.Duration("idle_ttl", t.idleTTL))
	return nil
}

// Stop 等待正在执行的任务结束
func (t *SessionSweepTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	<-t.cron.Stop().Done()
	t.running = false
	t.logger.Info("会话清理任务已停止")
}

// RunOnce 手动执行一次，返回各注册表清理的数量
func (t *SessionSweepTask) RunOnce() map[string]int {
	cutoff := t.now().Add(-t.idleTTL)
	out := make(map[string]int, len(t.evicters))
	for name, e := range t.evicters {
		n := e.EvictIdle(cutoff)
		out[name] = n
		if n > 0 {
			t.logger.Info("已清理空闲会话", zap.String("registry", name), zap.Int("count", n))
		}
	}
	return out
}
