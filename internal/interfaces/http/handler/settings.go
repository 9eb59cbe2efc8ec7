package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/application/settings"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/interfaces/http/response"
)

// SettingsHandler 设置处理器
type SettingsHandler struct {
	settings *settings.Service
	llm      *llm.Client
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(settingsSvc *settings.Service, client *llm.Client) *SettingsHandler {
	return &SettingsHandler{settings: settingsSvc, llm: client}
}

// Get 读取全部设置
// GET /api/v1/settings
// API Key 不回传，只回传是否已配置
func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.settings.Get()
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, gin.H{
		"language":    s.Language,
		"provider":    s.ModelProvider,
		"model":       s.ModelName,
		"endpoint":    s.Endpoint,
		"has_api_key": s.APIKey != "",
	})
}

// SetLanguage 设置生成语言
// POST /api/v1/settings/language
func (h *SettingsHandler) SetLanguage(c *gin.Context) {
	var req struct {
		Language string `json:"language" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	normalized, err := h.settings.SetLanguage(req.Language)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"language": normalized})
}

// SetModel 更新模型配置
// POST /api/v1/settings/model
func (h *SettingsHandler) SetModel(c *gin.Context) {
	var req struct {
		Provider string `json:"provider" binding:"required"`
		Model    string `json:"model" binding:"required"`
		APIKey   string `json:"api_key"`
		Endpoint string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	if err := h.settings.UpdateModel(req.Provider, req.Model, req.APIKey, req.Endpoint); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"provider": req.Provider, "model": req.Model})
}

// TestModel 用当前（或覆盖后的）模型配置发起一次连通性测试
// POST /api/v1/settings/model/test
func (h *SettingsHandler) TestModel(c *gin.Context) {
	var req struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		APIKey   string `json:"api_key"`
		Endpoint string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	mc, err := h.settings.ResolveModel(settings.ModelOverride{
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
		Endpoint: req.Endpoint,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	if err := h.llm.TestConnection(c.Request.Context(), mc); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true, "provider": mc.Provider, "model": mc.Model})
}
