package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

// SessionHandler serves candidates taking an interview. They authenticate
// with the link token in the path instead of a session.
type SessionHandler struct {
	sessionUC         domain.InterviewSessionUsecase
	maxRecordingBytes int64
}

func NewSessionHandler(public *gin.RouterGroup, sessionUC domain.InterviewSessionUsecase, uploadLimit gin.HandlerFunc, maxRecordingBytes int64) {
	handler := &SessionHandler{sessionUC: sessionUC, maxRecordingBytes: maxRecordingBytes}

	session := public.Group("/session/:token")
	{
		session.POST("/start", handler.Start)
		session.GET("/current", handler.Current)
		session.POST("/answers", handler.SubmitAnswer)
		session.POST("/complete", handler.Complete)
		session.POST("/recording", uploadLimit, handler.UploadRecording)
	}
}

// Start godoc
// @Summary      Start the interview
// @Description  Allowed from 15 minutes before the scheduled time until the deadline. Calling it again resumes.
// @Tags         session
// @Produce      json
// @Param        token  path      string  true  "Interview link token"
// @Success      200    {object}  response.Response{data=domain.SessionState}
// @Failure      409    {object}  response.Response
// @Failure      410    {object}  response.Response
// @Router       /session/{token}/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	state, err := h.sessionUC.Start(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview started", state)
}

// Current godoc
// @Summary      Current question
// @Description  The question to answer next without its answer key. done is true once every question is answered.
// @Tags         session
// @Produce      json
// @Param        token  path      string  true  "Interview link token"
// @Success      200    {object}  response.Response{data=domain.SessionState}
// @Router       /session/{token}/current [get]
func (h *SessionHandler) Current(c *gin.Context) {
	state, err := h.sessionUC.Current(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Current question", state)
}

// SubmitAnswer godoc
// @Summary      Answer the current question
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        token   path      string                      true  "Interview link token"
// @Param        answer  body      domain.SubmitAnswerRequest  true  "Answer"
// @Success      200     {object}  response.Response{data=domain.SessionState}
// @Failure      409     {object}  response.Response
// @Router       /session/{token}/answers [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req domain.SubmitAnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	state, err := h.sessionUC.SubmitAnswer(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Answer recorded", state)
}

// Complete godoc
// @Summary      Finish the interview
// @Tags         session
// @Produce      json
// @Param        token  path      string  true  "Interview link token"
// @Success      200    {object}  response.Response{data=domain.InterviewResult}
// @Failure      409    {object}  response.Response
// @Router       /session/{token}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	result, err := h.sessionUC.Complete(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview completed", result)
}

// UploadRecording godoc
// @Summary      Upload the interview recording
// @Description  webm, mp4, m4a, ogg, wav or mp3 within the configured size. Scanned for malware.
// @Tags         session
// @Accept       multipart/form-data
// @Produce      json
// @Param        token  path      string  true  "Interview link token"
// @Param        file   formData  file    true  "Recording"
// @Success      200    {object}  response.Response
// @Failure      400    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /session/{token}/recording [post]
func (h *SessionHandler) UploadRecording(c *gin.Context) {
	upload, ok := readUpload(c, h.maxRecordingBytes)
	if !ok {
		return
	}
	if err := h.sessionUC.UploadRecording(c.Request.Context(), c.Param("token"), upload); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Recording uploaded", nil)
}
