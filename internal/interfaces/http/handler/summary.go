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

// SummaryHandler 会议总结处理器
type SummaryHandler struct {
	summaries *appgen.SummaryService
	orch      *appgen.Orchestrator
}

// NewSummaryHandler 创建总结处理器
func NewSummaryHandler(summaries *appgen.SummaryService, orch *appgen.Orchestrator) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, orch: orch}
}

type summaryRequest struct {
	CustomPrompt string `json:"custom_prompt"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	APIKey       string `json:"api_key"`
	Endpoint     string `json:"endpoint"`
}

func (r summaryRequest) override() settings.ModelOverride {
	return settings.ModelOverride{
		Provider: r.Provider,
		Model:    r.Model,
		APIKey:   r.APIKey,
		Endpoint: r.Endpoint,
	}
}

type summaryView struct {
	MeetingID   string                  `json:"meeting_id"`
	Sections    meeting.SummarySections `json:"sections"`
	RawMarkdown string                  `json:"raw_markdown"`
	Structured  bool                    `json:"structured"`
	Model       string                  `json:"model"`
	Language    string                  `json:"language"`
	GeneratedAt string                  `json:"generated_at"`
}

func toSummaryView(s *meeting.Summary) summaryView {
	return summaryView{
		MeetingID:   s.MeetingID,
		Sections:    s.Sections,
		RawMarkdown: s.RawMarkdown,
		Structured:  s.Structured,
		Model:       s.Model,
		Language:    s.Language,
		GeneratedAt: s.GeneratedAt.Format(time.RFC3339),
	}
}

// Generate 生成会议总结
// POST /api/v1/meetings/:id/summary
func (h *SummaryHandler) Generate(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	summary, err := h.summaries.Generate(c.Request.Context(), c.Param("id"), req.CustomPrompt, req.override())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, toSummaryView(summary))
}

// Regenerate 重新生成会议总结
// POST /api/v1/meetings/:id/summary/regenerate
func (h *SummaryHandler) Regenerate(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	summary, err := h.summaries.Regenerate(c.Request.Context(), c.Param("id"), req.CustomPrompt, req.override())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, toSummaryView(summary))
}

// Get 读取会议总结
// GET /api/v1/meetings/:id/summary
func (h *SummaryHandler) Get(c *gin.Context) {
	summary, err := h.summaries.Get(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if summary == nil {
		response.Error(c, http.StatusNotFound, http.StatusNotFound, "summary not found")
		return
	}
	response.Success(c, toSummaryView(summary))
}

// Status 会议名下生成任务状态
// GET /api/v1/meetings/:id/generation/status
func (h *SummaryHandler) Status(c *gin.Context) {
	jobs := h.orch.MeetingStatus(c.Param("id"))

	type jobView struct {
		Kind       string `json:"kind"`
		Status     string `json:"status"`
		Model      string `json:"model,omitempty"`
		Error      string `json:"error,omitempty"`
		StartedAt  string `json:"started_at,omitempty"`
		FinishedAt string `json:"finished_at,omitempty"`
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		v := jobView{
			Kind:   string(job.Kind),
			Status: string(job.Status),
			Model:  job.Model,
			Error:  job.Error,
		}
		if !job.StartedAt.IsZero() {
			v.StartedAt = job.StartedAt.Format(time.RFC3339)
		}
		if !job.FinishedAt.IsZero() {
			v.FinishedAt = job.FinishedAt.Format(time.RFC3339)
		}
		views = append(views, v)
	}
	response.Success(c, views)
}
