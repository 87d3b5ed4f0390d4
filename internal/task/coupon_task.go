package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CouponExpirer 停用过期优惠券
type CouponExpirer interface {
	ExpireCoupons(now time.Time) int
}

// CouponExpiryTask 定时停用已过期的优惠券
type CouponExpiryTask struct {
	catalog  CouponExpirer
	schedule string
	cron     *cron.Cron
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewCouponExpiryTask schedule 为秒级 cron 表达式
func NewCouponExpiryTask(catalog CouponExpirer, schedule string, logger *zap.Logger) *CouponExpiryTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultCouponSweepCron
	}
	return &CouponExpiryTask{
		catalog:  catalog,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()), // 支持秒级控制
		now:      time.Now,
		logger:   logger.With(zap.String("task", "coupon_expiry")),
	}
}

// Start 启动时先执行一次，之后按 cron 执行
func (t *CouponExpiryTask) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	if _, err := t.cron.AddFunc(t.schedule, func() { t.RunOnce() }); err != nil {
		return fmt.Errorf("注册优惠券过期任务失败: %w", err)
	}

	// 首次执行
	t.RunOnce()

	t.cron.Start()
	t.running = true
	t.logger.Info("优惠券过期任务已启动", zap.String("cron", t.schedule))
	return nil
}

// Stop 等待正在执行的任务结束
func (t *CouponExpiryTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	<-t.cron.Stop().Done()
	t.running = false
	t.logger.Info("优惠券过期任务已停止")
}

// RunOnce 手动执行一次，返回停用数量
func (t *CouponExpiryTask) RunOnce() int {
	n := t.catalog.ExpireCoupons(t.now())
	if n > 0 {
		t.logger.Info("已停用过期优惠券", zap.Int("count", n))
	}
	return n
}
