package service

import (
	"sync"
	"time"

	"lumina_shop/internal/model"
)

// Notifier 单槽提示：新提示直接覆盖旧提示，到期自动隐藏
type Notifier struct {
	mu    sync.Mutex
	ttl   time.Duration
	toast model.Toast
	gen   uint64
	timer *time.Timer
}

// NewNotifier ttl <= 0 时不自动隐藏
func NewNotifier(ttl time.Duration) *Notifier {
	return &Notifier{ttl: ttl}
}

// Show 显示提示
func (n *Notifier) Show(message string, typ model.ToastType) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.gen++
	n.toast = model.Toast{Message: message, Type: typ, Visible: true}
	if n.timer != nil {
		n.timer.Stop()
	}
	if n.ttl <= 0 {
		n.timer = nil
		return
	}

	gen := n.gen
	n.timer = time.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		// 过期计时器不能隐藏更新的提示
		if n.gen == gen {
			n.toast.Visible = false
		}
	})
}

// Dismiss 立即隐藏
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	n.toast.Visible = false
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// Current 当前提示快照
func (n *Notifier) Current() model.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.toast
}
