package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lumina_shop/internal/model"
)

// ChatGreeting 对话开场白
const ChatGreeting = "Hi! I am your AI Shopping Assistant. Looking for something specific? Ask me!"

// chatHistoryWindow 作为上下文带上的历史消息条数
const chatHistoryWindow = 5

var (
	ErrEmptyMessage  = errors.New("消息为空")
	ErrAssistantBusy = errors.New("导购助手正在回复上一条消息")
)

// ProductSource 提供当前商品目录
type ProductSource interface {
	Products() []model.Product
}

// ==================== ChatSession ====================

// ChatSession 单个会话的导购对话，历史只在内存中
// 同一时刻最多一个进行中的请求，第二个请求直接拒绝
type ChatSession struct {
	sessionID string
	assistant *AssistantService
	catalog   ProductSource

	mu       sync.Mutex
	messages []model.ChatMessage
	cancel   context.CancelFunc // 进行中请求，nil 表示空闲
}

// NewChatSession 以开场白初始化
func NewChatSession(sessionID string, assistant *AssistantService, catalog ProductSource) *ChatSession {
	return &ChatSession{
		sessionID: sessionID,
		assistant: assistant,
		catalog:   catalog,
		messages: []model.ChatMessage{{
			ID:                    "1",
			Role:                  model.ChatRoleModel,
			Text:                  ChatGreeting,
			RecommendedProductIDs: []int64{},
		}},
	}
}

// Send 发送用户消息并等待回复；降级回复也会追加到历史
// 返回的 error 只说明回复是否降级，回复消息始终有效
func (c *ChatSession) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return model.ChatMessage{}, ErrAssistantBusy
	}
	history := historyText(c.messages)
	c.messages = append(c.messages, model.ChatMessage{
		ID:                    uuid.NewString(),
		Role:                  model.ChatRoleUser,
		Text:                  text,
		RecommendedProductIDs: []int64{},
	})
	callCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	reply, err := c.assistant.advise(callCtx, c.sessionID, text, history, c.catalog.Products())
	cancel()

	msg := model.ChatMessage{
		ID:                      uuid.NewString(),
		Role:                    model.ChatRoleModel,
		Text:                    reply.Text,
		IsProductRecommendation: len(reply.ProductIDs) > 0,
		RecommendedProductIDs:   reply.ProductIDs,
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.cancel = nil
	c.mu.Unlock()

	return msg.Clone(), err
}

// AskAboutProduct 商品详情页的"问问 AI"
func (c *ChatSession) AskAboutProduct(ctx context.Context, p model.Product) (model.ChatMessage, error) {
	return c.Send(ctx, AskAboutProductText(p))
}

// AskAboutProductText 游戏类商品问游戏用途，其他问日常使用
func AskAboutProductText(p model.Product) string {
	usage := "daily use"
	if p.Category == "gaming" {
		usage = "gaming"
	}
	return fmt.Sprintf("I am looking at %s. Can you tell me if this is good for %s? And suggest similar items.", p.Title, usage)
}

// Cancel 取消进行中的请求，返回是否有请求被取消
func (c *ChatSession) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Busy 是否有进行中的请求
func (c *ChatSession) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *ChatSession) Messages() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ChatMessage, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// historyText 最近 5 条消息，每行 "role: text"
func historyText(messages []model.ChatMessage) string {
	start := max(0, len(messages)-chatHistoryWindow)
	lines := make([]string, 0, chatHistoryWindow)
	for _, m := range messages[start:] {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Text))
	}
	return strings.Join(lines, "\n")
}

// RecommendedProducts 按目录顺序返回推荐的商品
func (c *ChatSession) RecommendedProducts(ids []int64) []model.Product {
	out := []model.Product{}
	for _, p := range c.catalog.Products() {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// ==================== ChatService ====================

// ChatService 会话对话注册表
type ChatService struct {
	assistant *AssistantService
	catalog   ProductSource
	now       func() time.Time

	mu         sync.Mutex
	sessions   map[string]*ChatSession
	lastAccess map[string]time.Time
}

func NewChatService(assistant *AssistantService, catalog ProductSource) *ChatService {
	return &ChatService{
		assistant:  assistant,
		catalog:    catalog,
		now:        time.Now,
		sessions:   make(map[string]*ChatSession),
		lastAccess: make(map[string]time.Time),
	}
}

// Session 取或创建会话对话
func (s *ChatService) Session(sessionID string) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[sessionID]
	if !ok {
		cs = NewChatSession(sessionID, s.assistant, s.catalog)
		s.sessions[sessionID] = cs
	}
	s.lastAccess[sessionID] = s.now()
	return cs
}

// EvictIdle 丢弃 before 之前最后访问且没有进行中请求的对话
func (s *ChatService) EvictIdle(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, cs := range s.sessions {
		if !s.lastAccess[id].Before(before) || cs.Busy() {
			continue
		}
		delete(s.sessions, id)
		delete(s.lastAccess, id)
		n++
	}
	return n
}

// SessionCount 当前内存中的对话数
func (s *ChatService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
