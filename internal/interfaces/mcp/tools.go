package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/meetscribe/backend/internal/application/settings"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListMeetingsInput 会议列表工具输入（空输入）
type ListMeetingsInput struct{}

// MeetingEntry 会议列表条目
type MeetingEntry struct {
	ID            string `json:"id" jsonschema:"会议 ID"`
	Title         string `json:"title" jsonschema:"会议标题"`
	CreatedAt     string `json:"created_at" jsonschema:"创建时间（RFC3339）"`
	HasTranscript bool   `json:"has_transcript" jsonschema:"是否已有转录"`
	HasSummary    bool   `json:"has_summary" jsonschema:"是否已有总结"`
}

// ListMeetingsOutput 会议列表工具输出
type ListMeetingsOutput struct {
	Meetings []MeetingEntry `json:"meetings" jsonschema:"会议列表，按创建时间倒序"`
	Total    int            `json:"total" jsonschema:"会议总数"`
}

// listMeetingsTool 列出全部会议
func (s *MCPServer) listMeetingsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListMeetingsInput,
) (*mcp.CallToolResult, ListMeetingsOutput, error) {
	meetings, err := s.meetings.FindAll()
	if err != nil {
		return nil, ListMeetingsOutput{}, err
	}

	entries := make([]MeetingEntry, 0, len(meetings))
	for _, m := range meetings {
		hasTranscript, err := s.transcripts.HasFragments(m.ID)
		if err != nil {
			return nil, ListMeetingsOutput{}, err
		}
		summary, err := s.summaries.Get(m.ID)
		if err != nil {
			return nil, ListMeetingsOutput{}, err
		}
		entries = append(entries, MeetingEntry{
			ID:            m.ID,
			Title:         m.Title,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
			HasTranscript: hasTranscript,
			HasSummary:    summary != nil,
		})
	}

	return nil, ListMeetingsOutput{Meetings: entries, Total: len(entries)}, nil
}

// GetMeetingSummaryInput 总结读取工具输入
type GetMeetingSummaryInput struct {
	MeetingID string `json:"meeting_id" jsonschema:"会议 ID"`
}

// GetMeetingSummaryOutput 总结读取工具输出
type GetMeetingSummaryOutput struct {
	MeetingID   string   `json:"meeting_id" jsonschema:"会议 ID"`
	KeyPoints   []string `json:"key_points" jsonschema:"要点"`
	ActionItems []string `json:"action_items" jsonschema:"行动项"`
	Decisions   []string `json:"decisions" jsonschema:"决定"`
	MainTopics  []string `json:"main_topics" jsonschema:"主要议题"`
	RawMarkdown string   `json:"raw_markdown" jsonschema:"原始 Markdown"`
	Structured  bool     `json:"structured" jsonschema:"章节是否来自结构化解析"`
	Model       string   `json:"model" jsonschema:"生成所用模型"`
	Language    string   `json:"language" jsonschema:"生成语言"`
	GeneratedAt string   `json:"generated_at" jsonschema:"生成时间（RFC3339）"`
}

// getMeetingSummaryTool 读取会议总结
func (s *MCPServer) getMeetingSummaryTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetMeetingSummaryInput,
) (*mcp.CallToolResult, GetMeetingSummaryOutput, error) {
	m, err := s.meetings.FindByID(input.MeetingID)
	if err != nil {
		return nil, GetMeetingSummaryOutput{}, err
	}
	if m == nil {
		return nil, GetMeetingSummaryOutput{}, meeting.ErrMeetingNotFound
	}

	summary, err := s.summaries.Get(input.MeetingID)
	if err != nil {
		return nil, GetMeetingSummaryOutput{}, err
	}
	if summary == nil {
		return nil, GetMeetingSummaryOutput{}, fmt.Errorf("no summary has been generated for meeting %s", input.MeetingID)
	}

	return nil, GetMeetingSummaryOutput{
		MeetingID:   summary.MeetingID,
		KeyPoints:   summary.Sections.KeyPoints,
		ActionItems: summary.Sections.ActionItems,
		Decisions:   summary.Sections.Decisions,
		MainTopics:  summary.Sections.MainTopics,
		RawMarkdown: summary.RawMarkdown,
		Structured:  summary.Structured,
		Model:       summary.Model,
		Language:    summary.Language,
		GeneratedAt: summary.GeneratedAt.Format(time.RFC3339),
	}, nil
}

// AskMeetingQuestionInput 会议问答工具输入
type AskMeetingQuestionInput struct {
	MeetingID string `json:"meeting_id" jsonschema:"会议 ID"`
	Question  string `json:"question" jsonschema:"关于会议内容的问题"`
}

// AskMeetingQuestionOutput 会议问答工具输出
type AskMeetingQuestionOutput struct {
	MeetingID string `json:"meeting_id" jsonschema:"会议 ID"`
	Answer    string `json:"answer" jsonschema:"回答内容"`
}

// askMeetingQuestionTool 针对会议内容提问
func (s *MCPServer) askMeetingQuestionTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskMeetingQuestionInput,
) (*mcp.CallToolResult, AskMeetingQuestionOutput, error) {
	turn, err := s.chats.Ask(ctx, input.MeetingID, input.Question, settings.ModelOverride{})
	if err != nil {
		return nil, AskMeetingQuestionOutput{}, err
	}

	return nil, AskMeetingQuestionOutput{
		MeetingID: input.MeetingID,
		Answer:    turn.Answer,
	}, nil
}
