package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/singleton"
	"github.com/meetscribe/backend/internal/interfaces/http/handler"
	"github.com/meetscribe/backend/internal/interfaces/http/middleware"
	"github.com/meetscribe/backend/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	meetingHandler *handler.MeetingHandler,
	recordingHandler *handler.RecordingHandler,
	summaryHandler *handler.SummaryHandler,
	chatHandler *handler.ChatHandler,
	settingsHandler *handler.SettingsHandler,
	modelHandler *handler.ModelHandler,
	wsHandler *handler.WSHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 会议
		api.POST("/meetings", meetingHandler.Create)
		api.GET("/meetings", meetingHandler.List)
		api.GET("/meetings/:id", meetingHandler.Get)
		api.DELETE("/meetings/:id", meetingHandler.Delete)
		api.GET("/meetings/:id/transcript", meetingHandler.GetTranscript)

		// 录音会话
		api.POST("/meetings/:id/recording/start", recordingHandler.Start)
		recording := api.Group("/recording")
		{
			recording.POST("/:sessionId/chunk", recordingHandler.PushChunk)
			recording.POST("/:sessionId/pause", recordingHandler.Pause)
			recording.POST("/:sessionId/resume", recordingHandler.Resume)
			recording.POST("/:sessionId/stop", recordingHandler.Stop)
			recording.POST("/:sessionId/cancel", recordingHandler.Cancel)
		}
		api.GET("/transcription/status", recordingHandler.Status)

		// 总结
		api.POST("/meetings/:id/summary", summaryHandler.Generate)
		api.POST("/meetings/:id/summary/regenerate", summaryHandler.Regenerate)
		api.GET("/meetings/:id/summary", summaryHandler.Get)
		api.GET("/meetings/:id/generation/status", summaryHandler.Status)

		// 问答
		api.POST("/meetings/:id/chat", chatHandler.Ask)
		api.GET("/meetings/:id/chat", chatHandler.History)
		api.DELETE("/meetings/:id/chat", chatHandler.Clear)

		// 设置
		api.GET("/settings", settingsHandler.Get)
		api.POST("/settings/language", settingsHandler.SetLanguage)
		api.POST("/settings/model", settingsHandler.SetModel)
		api.POST("/settings/model/test", settingsHandler.TestModel)

		// 转录模型管理
		api.GET("/models", modelHandler.List)
		api.POST("/models/:name/download", modelHandler.Download)
		api.POST("/engine/reconfigure", modelHandler.Reconfigure)
	}

	// 实时推送
	router.GET("/ws/meetings/:id", wsHandler.Subscribe)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: singleton.DefaultPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
