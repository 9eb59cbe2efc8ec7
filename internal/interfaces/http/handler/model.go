package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/infrastructure/engine"
	"github.com/meetscribe/backend/internal/infrastructure/modelstore"
	"github.com/meetscribe/backend/internal/interfaces/http/response"
)

// ModelHandler 转录模型管理处理器
type ModelHandler struct {
	engine *engine.Engine
	store  *modelstore.Store
}

// NewModelHandler 创建模型处理器
func NewModelHandler(eng *engine.Engine, store *modelstore.Store) *ModelHandler {
	return &ModelHandler{engine: eng, store: store}
}

// List 模型目录与本地可用状态
// GET /api/v1/models
func (h *ModelHandler) List(c *gin.Context) {
	names := engine.AvailableModels()
	sort.Strings(names)

	type modelView struct {
		Name      string `json:"name"`
		SizeBytes int64  `json:"size_bytes"`
		Cached    bool   `json:"cached"`
	}

	views := make([]modelView, 0, len(names))
	for _, name := range names {
		desc, err := engine.LookupModel(name)
		if err != nil {
			continue
		}
		views = append(views, modelView{
			Name:      name,
			SizeBytes: desc.SizeBytes,
			Cached:    h.store.IsAvailable(desc),
		})
	}

	response.Success(c, gin.H{
		"models":      views,
		"diagnostics": h.engine.Diagnostics(),
	})
}

// Download 预下载一个模型制品
// POST /api/v1/models/:name/download
// 已缓存时是幂等空操作；并发请求共享同一次传输
func (h *ModelHandler) Download(c *gin.Context) {
	desc, err := engine.LookupModel(c.Param("name"))
	if err != nil {
		response.Error(c, http.StatusNotFound, http.StatusNotFound, err.Error())
		return
	}

	path, err := h.store.EnsureAvailable(c.Request.Context(), desc)
	if err != nil {
		response.Error(c, http.StatusBadGateway, http.StatusBadGateway, err.Error())
		return
	}
	response.Success(c, gin.H{"name": desc.Name, "path": path})
}

// Reconfigure 切换转录模型
// POST /api/v1/engine/reconfigure
// 有活动录音会话时返回冲突，调用方排空后重试
func (h *ModelHandler) Reconfigure(c *gin.Context) {
	var req struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	if err := h.engine.Reconfigure(c.Request.Context(), req.Model); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, h.engine.Diagnostics())
}
