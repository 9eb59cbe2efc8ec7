package mcp

import (
	"net/http"

	appgen "github.com/meetscribe/backend/internal/application/generation"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer MCP 服务器
// 把会议问答与总结读取暴露为 MCP 工具，供外部代理通过 SSE 调用
type MCPServer struct {
	server      *mcp.Server
	handler     http.Handler
	meetings    storage.MeetingRepository
	summaries   *appgen.SummaryService
	chats       *appgen.ChatService
	transcripts storage.TranscriptRepository
}

// NewServer 创建 MCP 服务器
func NewServer(
	meetings storage.MeetingRepository,
	transcripts storage.TranscriptRepository,
	summaries *appgen.SummaryService,
	chats *appgen.ChatService,
) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "meetscribe-daemon",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:      server,
		meetings:    meetings,
		transcripts: transcripts,
		summaries:   summaries,
		chats:       chats,
	}

	// 注册工具：list_meetings
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_meetings",
		Description: "List recorded meetings, newest first. No parameters required. Returns: meeting id, title, creation time, and whether a transcript and a summary exist.",
	}, mcpServer.listMeetingsTool)

	// 注册工具：get_meeting_summary
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_meeting_summary",
		Description: "Get the generated summary of a meeting. Parameters: meeting_id (string, required). Returns: the four summary sections (key points, action items, decisions, main topics), the raw markdown, and generation metadata.",
	}, mcpServer.getMeetingSummaryTool)

	// 注册工具：ask_meeting_question
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_meeting_question",
		Description: "Ask a question about a meeting's content. Parameters: meeting_id (string, required), question (string, required). The question and answer are persisted in the meeting's chat history. Returns: the answer text.",
	}, mcpServer.askMeetingQuestionTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Start 启动服务器（HTTP/SSE 模式）
// MCP 服务器通过 HTTP Handler 提供服务，由 HTTP 服务器统一管理
func (s *MCPServer) Start() error {
	return nil
}

// Stop 停止服务器
func (s *MCPServer) Stop() error {
	return nil
}
