package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ==================== SDK 实现 ====================

// GeminiGenerator 基于 generative-ai-go SDK
type GeminiGenerator struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiGenerator httpClient 为 nil 时使用 SDK 默认客户端
func NewGeminiGenerator(apiKey, modelName string, httpClient *http.Client) *GeminiGenerator {
	if modelName == "" {
		modelName = DefaultAssistantModel
	}
	return &GeminiGenerator{apiKey: apiKey, model: modelName, httpClient: httpClient}
}

func (g *GeminiGenerator) Transport() string { return "sdk" }
func (g *GeminiGenerator) Model() string     { return g.model }

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.apiKey == "" {
		return "", ErrNoAPIKey
	}

	opts := []option.ClientOption{option.WithAPIKey(g.apiKey)}
	if g.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(g.httpClient))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("Gemini 初始化失败: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(g.model)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}

	resp, err := m.GenerateContent(ctx, genai.Text(req.UserContent))
	if err != nil {
		return "", fmt.Errorf("AI 生成失败: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyAIReply
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// ==================== REST 实现 ====================

// RESTGenerator 直接调用 generateContent 接口
type RESTGenerator struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewRESTGenerator baseURL 形如 https://generativelanguage.googleapis.com
func NewRESTGenerator(baseURL, apiKey, modelName string, timeout time.Duration) *RESTGenerator {
	if modelName == "" {
		modelName = DefaultAssistantModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &RESTGenerator{client: client, apiKey: apiKey, model: modelName}
}

func (g *RESTGenerator) Transport() string { return "rest" }
func (g *RESTGenerator) Model() string     { return g.model }

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restGenerateResponse struct {
	Candidates []struct {
		Content restContent `json:"content"`
	} `json:"candidates"`
}

func (g *RESTGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body := map[string]interface{}{
		"systemInstruction": restContent{Parts: []restPart{{Text: req.SystemInstruction}}},
		"contents": []restContent{
			{Role: "user", Parts: []restPart{{Text: req.UserContent}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	var result restGenerateResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("model", g.model).
		SetQueryParam("key", g.apiKey).
		SetBody(body).
		SetResult(&result).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("Gemini API 错误 [%d]: %s", resp.StatusCode(), truncate(resp.String(), 512))
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyAIReply
	}
	return sb.String(), nil
}
