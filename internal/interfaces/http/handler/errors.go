package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/backend/internal/domain/generation"
	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
	"github.com/meetscribe/backend/internal/interfaces/http/response"
)

// writeDomainError 将领域错误映射为 HTTP 状态码
// 未识别的错误一律 500，不向客户端泄露内部细节
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, meeting.ErrMeetingNotFound),
		errors.Is(err, transcription.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, http.StatusNotFound, err.Error())

	case errors.Is(err, generation.ErrEmptyQuestion),
		errors.Is(err, meeting.ErrEmptyMeetingID),
		errors.Is(err, generation.ErrInvalidKind):
		response.Error(c, http.StatusBadRequest, http.StatusBadRequest, err.Error())

	case errors.Is(err, generation.ErrAlreadyInProgress),
		errors.Is(err, transcription.ErrSessionActive),
		errors.Is(err, transcription.ErrInvalidState),
		errors.Is(err, meeting.ErrNoTranscript),
		errors.Is(err, generation.ErrSummaryRequired),
		errors.Is(err, meeting.ErrTranscriptSealed):
		response.Error(c, http.StatusConflict, http.StatusConflict, err.Error())

	case errors.Is(err, generation.ErrNoModelConfigured),
		errors.Is(err, llm.ErrUnknownProvider):
		response.Error(c, http.StatusPreconditionFailed, http.StatusPreconditionFailed, err.Error())

	case errors.Is(err, generation.ErrTimeout):
		response.Error(c, http.StatusGatewayTimeout, http.StatusGatewayTimeout, err.Error())

	case errors.Is(err, generation.ErrModelCallFailed),
		errors.Is(err, llm.ErrNetwork),
		errors.Is(err, llm.ErrRateLimited),
		errors.Is(err, llm.ErrAuth),
		errors.Is(err, llm.ErrModelUnavailable):
		response.Error(c, http.StatusBadGateway, http.StatusBadGateway, err.Error())

	case errors.Is(err, transcription.ErrModelNotReady):
		response.Error(c, http.StatusServiceUnavailable, http.StatusServiceUnavailable, err.Error())

	default:
		response.Error(c, http.StatusInternalServerError, http.StatusInternalServerError, "internal error")
	}
}
