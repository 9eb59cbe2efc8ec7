package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/infrastructure/storage"
	"github.com/meetscribe/backend/internal/interfaces/http/response"
)

// MeetingHandler 会议处理器
type MeetingHandler struct {
	meetings    storage.MeetingRepository
	transcripts storage.TranscriptRepository
}

// NewMeetingHandler 创建会议处理器
func NewMeetingHandler(meetings storage.MeetingRepository, transcripts storage.TranscriptRepository) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, transcripts: transcripts}
}

type meetingView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

func toMeetingView(m *meeting.Meeting) meetingView {
	return meetingView{
		ID:        m.ID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// Create 创建会议
// POST /api/v1/meetings
func (h *MeetingHandler) Create(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	m := &meeting.Meeting{Title: req.Title}
	if err := h.meetings.Save(m); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, toMeetingView(m))
}

// List 会议列表，按创建时间倒序
// GET /api/v1/meetings
func (h *MeetingHandler) List(c *gin.Context) {
	meetings, err := h.meetings.FindAll()
	if err != nil {
		writeDomainError(c, err)
		return
	}

	views := make([]meetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, toMeetingView(m))
	}
	response.Success(c, views)
}

// Get 会议详情
// GET /api/v1/meetings/:id
func (h *MeetingHandler) Get(c *gin.Context) {
	m, err := h.meetings.FindByID(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if m == nil {
		writeDomainError(c, meeting.ErrMeetingNotFound)
		return
	}
	response.Success(c, toMeetingView(m))
}

// Delete 删除会议，级联删除转录、总结与问答消息
// DELETE /api/v1/meetings/:id
func (h *MeetingHandler) Delete(c *gin.Context) {
	m, err := h.meetings.FindByID(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if m == nil {
		writeDomainError(c, meeting.ErrMeetingNotFound)
		return
	}

	if err := h.meetings.Delete(m.ID); err != nil {
		writeDomainError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": m.ID})
}

// GetTranscript 读取完整转录
// GET /api/v1/meetings/:id/transcript
func (h *MeetingHandler) GetTranscript(c *gin.Context) {
	meetingID := c.Param("id")

	m, err := h.meetings.FindByID(meetingID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if m == nil {
		writeDomainError(c, meeting.ErrMeetingNotFound)
		return
	}

	transcript, err := h.transcripts.FindByMeeting(meetingID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	type fragmentView struct {
		Seq        int64    `json:"seq"`
		StartMs    int64    `json:"start_ms"`
		EndMs      int64    `json:"end_ms"`
		Text       string   `json:"text"`
		Confidence *float64 `json:"confidence,omitempty"`
		Language   string   `json:"language"`
	}

	fragments := make([]fragmentView, 0, len(transcript.Fragments))
	for _, f := range transcript.Fragments {
		fragments = append(fragments, fragmentView{
			Seq:        f.Seq,
			StartMs:    f.StartMs,
			EndMs:      f.EndMs,
			Text:       f.Text,
			Confidence: f.Confidence,
			Language:   f.Language,
		})
	}

	response.Success(c, gin.H{
		"meeting_id": meetingID,
		"sealed":     transcript.Sealed,
		"fragments":  fragments,
		"plain_text": transcript.PlainText(),
	})
}
