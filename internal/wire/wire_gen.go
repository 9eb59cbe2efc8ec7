// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"github.com/meetscribe/backend/internal/application/generation"
	"github.com/meetscribe/backend/internal/application/prompt"
	"github.com/meetscribe/backend/internal/application/recording"
	"github.com/meetscribe/backend/internal/application/settings"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/engine"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/infrastructure/modelstore"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
	"github.com/meetscribe/backend/internal/infrastructure/watcher"
	"github.com/meetscribe/backend/internal/infrastructure/websocket"
	"github.com/meetscribe/backend/internal/interfaces/http"
	"github.com/meetscribe/backend/internal/interfaces/http/handler"
	"github.com/meetscribe/backend/internal/interfaces/mcp"
)

// Injectors from wire.go:

// InitializeAll 初始化所有服务（HTTP + MCP）
func InitializeAll() (*App, error) {
	configConfig := config.NewConfig()
	databaseConfig := config.NewDatabaseConfig(configConfig)
	db, err := storage.ProvideDB(databaseConfig)
	if err != nil {
		return nil, err
	}
	meetingRepository := storage.NewMeetingRepository(db)
	transcriptRepository := storage.NewTranscriptRepository(db)
	meetingHandler := handler.NewMeetingHandler(meetingRepository, transcriptRepository)
	engineConfig := config.NewEngineConfig(configConfig)
	downloader := modelstore.ProvideDownloader()
	store := modelstore.NewStore(engineConfig, downloader)
	provider := engine.ProvideProvider(engineConfig)
	engineEngine := engine.NewEngine(engineConfig, store, provider)
	eventBus := watcher.ProvideEventBus()
	service := recording.NewService(engineEngine, meetingRepository, transcriptRepository, eventBus)
	recordingHandler := handler.NewRecordingHandler(service)
	orchestrator := generation.NewOrchestrator(eventBus)
	summaryRepository := storage.NewSummaryRepository(db)
	llmConfig := config.NewLLMConfig(configConfig)
	templateStore := prompt.NewTemplateStore(eventBus)
	composer := prompt.NewComposer(llmConfig, templateStore)
	client := llm.NewClient(llmConfig)
	settingsRepository := storage.NewSettingsRepository(db)
	settingsService := settings.NewService(settingsRepository)
	summaryService := generation.NewSummaryService(orchestrator, meetingRepository, transcriptRepository, summaryRepository, composer, client, settingsService, llmConfig)
	summaryHandler := handler.NewSummaryHandler(summaryService, orchestrator)
	chatMessageRepository := storage.NewChatMessageRepository(db)
	chatService := generation.NewChatService(orchestrator, meetingRepository, transcriptRepository, summaryRepository, chatMessageRepository, composer, client, settingsService, llmConfig)
	chatHandler := handler.NewChatHandler(chatService)
	settingsHandler := handler.NewSettingsHandler(settingsService, client)
	modelHandler := handler.NewModelHandler(engineEngine, store)
	hub := websocket.NewHub()
	wsHandler := handler.NewWSHandler(hub)
	mcpServer := mcp.NewServer(meetingRepository, transcriptRepository, summaryService, chatService)
	v := http.NewServer(meetingHandler, recordingHandler, summaryHandler, chatHandler, settingsHandler, modelHandler, wsHandler, mcpServer)
	templatesConfig := config.NewTemplatesConfig(configConfig)
	templateWatcher, err := watcher.ProvideTemplateWatcher(templatesConfig, eventBus)
	if err != nil {
		return nil, err
	}
	app := NewApp(v, mcpServer, hub, engineEngine, eventBus, templateWatcher, db)
	return app, nil
}
