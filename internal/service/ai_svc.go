package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumina_shop/internal/model"
	"lumina_shop/internal/repository"
)

// ==================== 常量 ====================

const (
	DefaultAssistantModel = "gemini-3-flash-preview"

	// 回复缺少 response 字段
	AssistantThinkingFallback = "I'm having trouble thinking right now, but feel free to browse our catalog!"
	// 任何失败
	AssistantOfflineFallback = "I'm currently offline, but please check out our latest deals!"
)

var (
	ErrNoAPIKey       = errors.New("Gemini API Key 未配置")
	ErrEmptyAIReply   = errors.New("AI 返回为空")
	ErrMalformedReply = errors.New("AI 回复格式错误")
)

// ==================== 生成器接口 ====================

// GenerateRequest 一次生成请求
type GenerateRequest struct {
	SystemInstruction string
	UserContent       string
}

// TextGenerator 文本生成后端，返回模型原始文本
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Transport() string
	Model() string
}

// ==================== AssistantService ====================

// AssistantReply 导购回复
type AssistantReply struct {
	Text       string  `json:"text"`
	ProductIDs []int64 `json:"productIds"`
}

// AssistantService 导购助手：拼装提示词、调用一次模型、解析 JSON 回复
// 失败时返回兜底回复，同时返回错误
type AssistantService struct {
	generator   TextGenerator
	callLogRepo repository.AICallLogRepository
	logger      *zap.Logger
}

// NewAssistantService callLogRepo 可为 nil
func NewAssistantService(generator TextGenerator, callLogRepo repository.AICallLogRepository, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		generator:   generator,
		callLogRepo: callLogRepo,
		logger:      logger.With(zap.String("component", "assistant")),
	}
}

// Advise 不重试
func (s *AssistantService) Advise(ctx context.Context, userMessage, historyText string, catalog []model.Product) (AssistantReply, error) {
	return s.advise(ctx, "", userMessage, historyText, catalog)
}

func (s *AssistantService) advise(ctx context.Context, sessionID, userMessage, historyText string, catalog []model.Product) (AssistantReply, error) {
	req := GenerateRequest{
		SystemInstruction: BuildSystemInstruction(catalog),
		UserContent:       fmt.Sprintf("Context: %s\nUser Query: %s", historyText, userMessage),
	}

	start := time.Now()
	raw, err := s.generate(ctx, req)
	var reply AssistantReply
	if err == nil {
		reply, err = ParseAssistantReply(raw)
	}
	if err != nil {
		s.logger.Warn("导购助手调用失败，使用兜底回复", zap.String("session", sessionID), zap.Error(err))
		reply = AssistantReply{Text: AssistantOfflineFallback, ProductIDs: []int64{}}
	}

	s.recordCall(ctx, sessionID, req, raw, reply, time.Since(start), err)
	return reply, err
}

func (s *AssistantService) generate(ctx context.Context, req GenerateRequest) (string, error) {
	if s.generator == nil {
		return "", ErrNoAPIKey
	}
	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyAIReply
	}
	return raw, nil
}

func (s *AssistantService) recordCall(ctx context.Context, sessionID string, req GenerateRequest, raw string, reply AssistantReply, d time.Duration, callErr error) {
	if s.callLogRepo == nil {
		return
	}
	log := &model.AICallLog{
		SessionID:        sessionID,
		PromptChars:      len(req.SystemInstruction) + len(req.UserContent),
		ResponseChars:    len(raw),
		RecommendedCount: len(reply.ProductIDs),
		DurationMs:       d.Milliseconds(),
		Status:           model.AICallStatusSuccess,
	}
	if s.generator != nil {
		log.Transport = s.generator.Transport()
		log.ModelName = s.generator.Model()
	}
	if callErr != nil {
		log.Status = model.AICallStatusFailed
		log.ErrorMsg = truncate(callErr.Error(), 1024)
	}
	// 调用方取消时日志仍需落库
	if err := s.callLogRepo.Create(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Error("写入 AI 调用日志失败", zap.Error(err))
	}
}

// ==================== 提示词 ====================

// CatalogLine 单个商品在提示词中的描述
func CatalogLine(p model.Product) string {
	return fmt.Sprintf("ID: %d, Name: %s, Price: $%s, Category: %s, Description: %s",
		p.ID, p.Title, strconv.FormatFloat(p.Price, 'f', -1, 64), p.Category, p.Description)
}

// BuildSystemInstruction 店铺人设、商品目录与 JSON 输出规则
func BuildSystemInstruction(catalog []model.Product) string {
	lines := make([]string, len(catalog))
	for i, p := range catalog {
		lines[i] = CatalogLine(p)
	}

	return fmt.Sprintf(`You are a helpful and enthusiastic shopping assistant for "Lumina Shop".
Your goal is to help users find products from our catalog.

Here is our Product Catalog:
%s

Rules:
1. If the user asks for a recommendation, suggest products from the catalog that match their needs.
2. Return your response in JSON format strictly.
3. The JSON should have two fields:
   - "response": A friendly text message to the user.
   - "recommended_ids": An array of product IDs (numbers) that you recommend. If none, return empty array.
4. Keep the text response concise (under 50 words) and persuasive.
5. If the user greets you, just greet back and ask how you can help.`, strings.Join(lines, "\n"))
}

// ==================== 回复解析 ====================

type rawAssistantReply struct {
	Response       string          `json:"response"`
	RecommendedIDs json.RawMessage `json:"recommended_ids"`
}

// ParseAssistantReply 解析 {response, recommended_ids}，容忍 ```json 包裹
// 顶层不是对象的合法 JSON 按无内容处理；商品 ID 接受数字或数字字符串
func ParseAssistantReply(raw string) (AssistantReply, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return AssistantReply{}, ErrEmptyAIReply
	}
	if !json.Valid([]byte(text)) {
		return AssistantReply{}, fmt.Errorf("%w: 不是合法的 JSON", ErrMalformedReply)
	}
	if text[0] != '{' {
		return AssistantReply{Text: AssistantThinkingFallback, ProductIDs: []int64{}}, nil
	}

	var parsed rawAssistantReply
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return AssistantReply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	reply := AssistantReply{Text: parsed.Response, ProductIDs: parseRecommendedIDs(parsed.RecommendedIDs)}
	if reply.Text == "" {
		reply.Text = AssistantThinkingFallback
	}
	return reply, nil
}

// parseRecommendedIDs 非数组时返回空，无法识别的元素跳过
func parseRecommendedIDs(raw json.RawMessage) []int64 {
	ids := []int64{}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return ids
	}
	for _, item := range items {
		if string(item) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(item, &f); err == nil {
			ids = append(ids, int64(f))
			continue
		}
		var str string
		if err := json.Unmarshal(item, &str); err != nil {
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			ids = append(ids, int64(f))
		}
	}
	return ids
}

// truncate 按字符截断，保证结果仍是合法 UTF-8
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return strings.ToValidUTF8(s[:cut], "")
}
