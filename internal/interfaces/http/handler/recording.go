package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/application/recording"
	"github.com/meetscribe/backend/internal/interfaces/http/response"
)

// RecordingHandler 录音会话处理器
type RecordingHandler struct {
	service *recording.Service
}

// NewRecordingHandler 创建录音处理器
func NewRecordingHandler(service *recording.Service) *RecordingHandler {
	return &RecordingHandler{service: service}
}

// Start 启动录音会话
// POST /api/v1/meetings/:id/recording/start
func (h *RecordingHandler) Start(c *gin.Context) {
	var req struct {
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	sessionID, err := h.service.Start(c.Request.Context(), c.Param("id"), req.Language)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": sessionID})
}

// PushChunk 推入一块音频
// POST /api/v1/recording/:sessionId/chunk
// 采样为 16kHz 单声道 PCM，小端 int16，base64 编码
func (h *RecordingHandler) PushChunk(c *gin.Context) {
	var req struct {
		PCMBase64  string `json:"pcm_base64" binding:"required"`
		DurationMs int64  `json:"duration_ms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.PCMBase64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid pcm encoding: "+err.Error())
		return
	}
	if len(raw)%2 != 0 {
		response.Error(c, http.StatusBadRequest, 400, "pcm payload must contain whole int16 samples")
		return
	}

	pcm := decodePCM(raw)
	if err := h.service.PushChunk(c.Request.Context(), c.Param("sessionId"), pcm, req.DurationMs); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"samples": len(pcm)})
}

// Pause 暂停录音
// POST /api/v1/recording/:sessionId/pause
func (h *RecordingHandler) Pause(c *gin.Context) {
	if err := h.service.Pause(c.Param("sessionId")); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"state": "paused"})
}

// Resume 恢复录音
// POST /api/v1/recording/:sessionId/resume
func (h *RecordingHandler) Resume(c *gin.Context) {
	if err := h.service.Resume(c.Param("sessionId")); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"state": "recording"})
}

// Stop 收尾录音会话并封存转录
// POST /api/v1/recording/:sessionId/stop
func (h *RecordingHandler) Stop(c *gin.Context) {
	transcript, err := h.service.Stop(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{
		"meeting_id": transcript.MeetingID,
		"sealed":     transcript.Sealed,
		"fragments":  len(transcript.Fragments),
	})
}

// Cancel 中止录音会话，保留已落盘片段
// POST /api/v1/recording/:sessionId/cancel
func (h *RecordingHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Param("sessionId")); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"state": "aborted"})
}

// Status 转录子系统状态
// GET /api/v1/transcription/status
func (h *RecordingHandler) Status(c *gin.Context) {
	response.Success(c, h.service.Status())
}

// decodePCM 小端字节流还原为 int16 采样
func decodePCM(raw []byte) []int16 {
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return pcm
}
