package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== CooldownLimiter 冷却限流器 ====================

// CooldownLimiter 同一个 key 在冷却间隔内只放行一次
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查并在放行时记录执行时间
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成 ====================

// KeyFunc 从请求中提取限流维度
type KeyFunc func(c *gin.Context) string

// BySession 按浏览器会话限流，需在 Session 中间件之后使用
func BySession(c *gin.Context) string {
	return "session:" + GetSessionID(c)
}

// ByClientIP 按客户端 IP 限流
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ==================== 中间件 ====================

// Cooldown 冷却限流中间件，interval <= 0 时不限流
//
// 使用示例:
//
//	api.POST("/chat", middleware.Cooldown(limiter, "chat", time.Second, middleware.BySession), ctl.Send)
func Cooldown(limiter *CooldownLimiter, scope string, interval time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if interval <= 0 {
			c.Next()
			return
		}

		result := limiter.Check(scope+":"+keyFn(c), interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after_ms": result.RetryAfter.Milliseconds(),
					"scope":          scope,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())

	if seconds < 1 {
		return "请求过于频繁，请稍后重试"
	}
	if seconds < 60 {
		return fmt.Sprintf("请求过于频繁，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		return fmt.Sprintf("请求过于频繁，请 %d 分钟后重试", minutes)
	}
	return fmt.Sprintf("请求过于频繁，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
