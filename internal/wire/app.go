package wire

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/infrastructure/engine"
	applog "github.com/meetscribe/backend/internal/infrastructure/log"
	"github.com/meetscribe/backend/internal/infrastructure/watcher"
	"github.com/meetscribe/backend/internal/infrastructure/websocket"
	"github.com/meetscribe/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	wsHub      *websocket.Hub
	engine     *engine.Engine
	db         *sql.DB
	logger     *slog.Logger

	// 事件相关
	eventBus        events.EventBus
	templateWatcher *watcher.TemplateWatcher
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	eng *engine.Engine,
	eventBus events.EventBus,
	templateWatcher *watcher.TemplateWatcher,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:      httpServer,
		MCPServer:       mcpServer,
		wsHub:           wsHub,
		engine:          eng,
		db:              db,
		logger:          applog.NewModuleLogger("app", "main"),
		eventBus:        eventBus,
		templateWatcher: templateWatcher,
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting MeetScribe backend application")

	// 注册事件订阅者并启动模板监听
	a.setupEventSubscribers()
	if a.templateWatcher != nil {
		if err := a.templateWatcher.Start(); err != nil {
			a.logger.Error("Failed to start template watcher",
				"error", err,
			)
		} else {
			a.logger.Info("Template watcher started successfully")
		}
	}

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 初始化识别引擎（goroutine：首次启动可能需要下载模型）
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := a.engine.Initialize(ctx); err != nil {
			a.logger.Error("Failed to initialize transcription engine",
				"error", err,
			)
		} else {
			a.logger.Info("Transcription engine ready")
		}
	}()

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("MeetScribe backend application started successfully")

	// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
	// 已在 HTTP 服务器中注册 /mcp/sse 端点

	return nil
}

// setupEventSubscribers 注册事件订阅者
// 转录片段、会话状态和生成任务状态都经 WebSocket 推给订阅该会议的前端
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	a.eventBus.Subscribe(
		events.FragmentAppended,
		events.HandlerFunc(func(event events.Event) error {
			fragEvent, ok := event.(*events.FragmentEvent)
			if !ok {
				return nil
			}
			return a.wsHub.BroadcastToMeeting(fragEvent.MeetingID, map[string]interface{}{
				"type":       "transcript.fragment",
				"session_id": fragEvent.SessionID,
				"seq":        fragEvent.Fragment.Seq,
				"start_ms":   fragEvent.Fragment.StartMs,
				"end_ms":     fragEvent.Fragment.EndMs,
				"text":       fragEvent.Fragment.Text,
				"language":   fragEvent.Fragment.Language,
			})
		}),
	)

	a.eventBus.Subscribe(
		events.SessionStateChanged,
		events.HandlerFunc(func(event events.Event) error {
			stateEvent, ok := event.(*events.SessionStateEvent)
			if !ok {
				return nil
			}
			return a.wsHub.BroadcastToMeeting(stateEvent.MeetingID, map[string]interface{}{
				"type":       "recording.state",
				"session_id": stateEvent.SessionID,
				"state":      stateEvent.State,
			})
		}),
	)

	a.eventBus.Subscribe(
		events.JobStateChanged,
		events.HandlerFunc(func(event events.Event) error {
			jobEvent, ok := event.(*events.JobEvent)
			if !ok {
				return nil
			}
			payload := map[string]interface{}{
				"type":   "generation.job",
				"kind":   jobEvent.Kind,
				"status": jobEvent.Status,
			}
			if jobEvent.Error != "" {
				payload["error"] = jobEvent.Error
			}
			return a.wsHub.BroadcastToMeeting(jobEvent.MeetingID, payload)
		}),
	)

	a.logger.Info("WebSocket hub subscribed to domain events")
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping MeetScribe backend application")

	// 停止模板监听器
	if a.templateWatcher != nil {
		a.templateWatcher.Stop()
		a.logger.Info("Template watcher stopped")
	}

	// 关闭事件总线
	if a.eventBus != nil {
		a.eventBus.Close()
		a.logger.Info("Event bus closed")
	}

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}
	if err := a.MCPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop MCP server",
			"error", err,
		)
		return err
	}

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database connection",
				"error", err,
			)
			return err
		}
	}

	a.logger.Info("MeetScribe backend application stopped successfully")

	return nil
}
