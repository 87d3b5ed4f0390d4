package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"lumina_shop/internal/repository"
)

// ShopperService 会话购物状态注册表，首次访问时从存储恢复
type ShopperService struct {
	repo     repository.StateRepository
	toastTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu         sync.Mutex
	loaded     bool
	state      *ShopperState
	lastAccess time.Time // 受 ShopperService.mu 保护
}

// NewShopperService 创建会话注册表
func NewShopperService(repo repository.StateRepository, toastTTL time.Duration, logger *zap.Logger) *ShopperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopperService{
		repo:     repo,
		toastTTL: toastTTL,
		now:      time.Now,
		logger:   logger.With(zap.String("component", "shopper_registry")),
		sessions: make(map[string]*sessionEntry),
	}
}

// Session 取会话状态；LoadReport 只在加载的那次请求有内容
// 加载不随请求取消而中断；读取失败时不缓存该会话，下一个请求重新加载
func (s *ShopperService) Session(ctx context.Context, sessionID string) (*ShopperState, LoadReport) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{
			state: NewShopperState(sessionID, s.repo, NewNotifier(s.toastTTL), s.logger),
		}
		s.sessions[sessionID] = entry
	}
	entry.lastAccess = s.now()
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.loaded {
		return entry.state, LoadReport{}
	}

	report := entry.state.Load(context.WithoutCancel(ctx))
	entry.loaded = true
	if report.Retryable() {
		s.logger.Warn("会话状态读取失败，下次请求重新加载",
			zap.String("session", sessionID), zap.Strings("keys", report.FailedKeys()))
		s.drop(sessionID, entry)
	}
	return entry.state, report
}

// drop 只移除仍指向 entry 的记录
func (s *ShopperService) drop(sessionID string, entry *sessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionID] == entry {
		delete(s.sessions, sessionID)
	}
}

// Forget 丢弃内存中的会话，下次访问重新从存储恢复
func (s *ShopperService) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// EvictIdle 丢弃 before 之前最后访问的会话，返回丢弃数量
// 状态每次修改都已写回，丢弃后下次访问从存储恢复
func (s *ShopperService) EvictIdle(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, entry := range s.sessions {
		if entry.lastAccess.Before(before) {
			delete(s.sessions, id)
			entry.state.Notifier().Dismiss()
			n++
		}
	}
	return n
}

// SessionCount 当前内存中的会话数
func (s *ShopperService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
