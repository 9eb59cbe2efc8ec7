package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appgen "github.com/meetscribe/backend/internal/application/generation"
	"github.com/meetscribe/backend/internal/application/settings"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/interfaces/http/response"
)

// ChatHandler 会议问答处理器
type ChatHandler struct {
	chats *appgen.ChatService
}

// NewChatHandler 创建问答处理器
func NewChatHandler(chats *appgen.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type chatMessageView struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func toChatMessageView(msg *meeting.ChatMessage) chatMessageView {
	return chatMessageView{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
}

// Ask 针对会议内容提问
// POST /api/v1/meetings/:id/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
		APIKey   string `json:"api_key"`
		Endpoint string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	turn, err := h.chats.Ask(c.Request.Context(), c.Param("id"), req.Question, settings.ModelOverride{
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
		Endpoint: req.Endpoint,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.Success(c, gin.H{
		"answer":            turn.Answer,
		"user_message":      toChatMessageView(turn.UserMessage),
		"assistant_message": toChatMessageView(turn.AssistantMessage),
	})
}

// History 会议对话历史，按时间升序
// GET /api/v1/meetings/:id/chat
func (h *ChatHandler) History(c *gin.Context) {
	messages, err := h.chats.History(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	views := make([]chatMessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, toChatMessageView(msg))
	}
	response.Success(c, views)
}

// Clear 清空会议对话历史
// DELETE /api/v1/meetings/:id/chat
func (h *ChatHandler) Clear(c *gin.Context) {
	deleted, err := h.chats.ClearHistory(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}
