package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"log/slog"

	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/log"
)

// 客户端错误，按失败类别区分以便上层决定是否重试、如何提示
var (
	ErrRateLimited      = errors.New("llm provider rate limited")
	ErrAuth             = errors.New("llm provider authentication failed")
	ErrNetwork          = errors.New("llm provider unreachable")
	ErrModelUnavailable = errors.New("llm model unavailable")
	ErrEmptyResponse    = errors.New("llm returned no choices")
	ErrUnknownProvider  = errors.New("unknown llm provider")
)

// providerEndpoint 提供方的 OpenAI 兼容入口
type providerEndpoint struct {
	BaseURL string
	// NeedsKey 是否必须提供 API Key（本地 Ollama 不需要）
	NeedsKey bool
}

// providerTable 受支持的提供方
// 所有提供方都暴露 OpenAI 兼容的 /chat/completions 接口
var providerTable = map[string]providerEndpoint{
	"openai":     {BaseURL: "https://api.openai.com/v1", NeedsKey: true},
	"anthropic":  {BaseURL: "https://api.anthropic.com/v1", NeedsKey: true},
	"groq":       {BaseURL: "https://api.groq.com/openai/v1", NeedsKey: true},
	"openrouter": {BaseURL: "https://openrouter.ai/api/v1", NeedsKey: true},
	"ollama":     {BaseURL: "http://localhost:11434/v1", NeedsKey: false},
}

// IsLocalProvider 判断提供方是否运行在本机（上下文更紧，需要分块总结）
func IsLocalProvider(provider string) bool {
	return provider == "ollama"
}

// RequiresKey 判断提供方是否必须配置 API Key
func RequiresKey(provider string) bool {
	ep, ok := providerTable[provider]
	return ok && ep.NeedsKey
}

// ResolveBaseURL 解析提供方的基础地址，endpoint 非空时覆盖默认值
func ResolveBaseURL(provider, endpoint string) (string, error) {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/"), nil
	}
	ep, ok := providerTable[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return ep.BaseURL, nil
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// errorResponse 提供方错误响应体
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ModelConfig 一次调用使用的模型配置
type ModelConfig struct {
	Provider string
	Model    string
	APIKey   string
	Endpoint string
}

// Client OpenAI 兼容的 Chat 客户端
// 请求超时完全由调用方通过 context 控制
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建 LLM 客户端
func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("llm", "client"),
	}
}

// Complete 发送一轮 Chat 请求并返回首个回复内容
func (c *Client) Complete(ctx context.Context, mc ModelConfig, messages []Message) (string, error) {
	if mc.Provider == "" || mc.Model == "" {
		return "", fmt.Errorf("%w: provider=%q model=%q", ErrModelUnavailable, mc.Provider, mc.Model)
	}

	baseURL, err := ResolveBaseURL(mc.Provider, mc.Endpoint)
	if err != nil {
		return "", err
	}

	reqBody := ChatRequest{
		Messages: messages,
		Model:    mc.Model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if mc.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", mc.APIKey))
	}

	c.logger.Debug("sending chat completion request",
		"provider", mc.Provider,
		"model", mc.Model,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("llm request canceled: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Info("chat completion succeeded",
		"provider", mc.Provider,
		"model", mc.Model,
		"tokens", chatResp.Usage.TotalTokens,
	)

	return chatResp.Choices[0].Message.Content, nil
}

// TestConnection 测试提供方连通性
func (c *Client) TestConnection(ctx context.Context, mc ModelConfig) error {
	_, err := c.Complete(ctx, mc, []Message{
		{Role: "user", Content: "Respond with the single word: OK"},
	})
	return err
}

// statusError 将 HTTP 状态码映射为类型化错误
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	detail := extractErrorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelUnavailable, detail)
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d: %s", ErrNetwork, resp.StatusCode, detail)
		}
		return fmt.Errorf("llm provider returned status %d: %s", resp.StatusCode, detail)
	}
}

// extractErrorMessage 尽力从错误响应体中取出可读信息
func extractErrorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
