package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

type InterviewHandler struct {
	interviewUC domain.InterviewUsecase
}

func NewInterviewHandler(protected *gin.RouterGroup, interviewUC domain.InterviewUsecase, editors gin.HandlerFunc) {
	handler := &InterviewHandler{interviewUC: interviewUC}

	interviews := protected.Group("/interviews")
	{
		interviews.GET("", handler.List)
		interviews.GET("/:id", handler.Get)
		interviews.GET("/:id/report", handler.Report)
		interviews.GET("/:id/recording", handler.RecordingURL)

		interviews.POST("", editors, handler.Schedule)
		interviews.PUT("/:id/schedule", editors, handler.Reschedule)
		interviews.POST("/:id/cancel", editors, handler.Cancel)
	}
}

// timeQuery parses an optional RFC 3339 query parameter.
func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.Error(apperror.BadRequest("Invalid " + name + ", expected RFC 3339"))
		return nil, false
	}
	return &t, true
}

// List godoc
// @Summary      List interviews
// @Tags         interviews
// @Produce      json
// @Param        campaign_id   query     string  false  "Campaign ID"
// @Param        candidate_id  query     string  false  "Candidate ID"
// @Param        status        query     string  false  "Interview status"
// @Param        from          query     string  false  "Scheduled at or after (RFC 3339)"
// @Param        to            query     string  false  "Scheduled before (RFC 3339)"
// @Param        page          query     int     false  "Page number"
// @Param        page_size     query     int     false  "Items per page"
// @Success      200           {object}  response.Response{data=domain.PaginatedResult[domain.Interview]}
// @Router       /interviews [get]
// @Security     BearerAuth
func (h *InterviewHandler) List(c *gin.Context) {
	campaignID, ok := optionalUUIDQuery(c, "campaign_id")
	if !ok {
		return
	}
	candidateID, ok := optionalUUIDQuery(c, "candidate_id")
	if !ok {
		return
	}
	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	result, err := h.interviewUC.List(c.Request.Context(), domain.InterviewFilter{
		CampaignID:  campaignID,
		CandidateID: candidateID,
		Status:      domain.InterviewStatus(c.Query("status")),
		From:        from,
		To:          to,
		Page:        domain.Page{Page: page, PageSize: pageSize},
	})
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interviews", result)
}

// Get godoc
// @Summary      Get an interview
// @Tags         interviews
// @Produce      json
// @Param        id   path      string  true  "Interview ID"
// @Success      200  {object}  response.Response{data=domain.Interview}
// @Failure      404  {object}  response.Response
// @Router       /interviews/{id} [get]
// @Security     BearerAuth
func (h *InterviewHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	interview, err := h.interviewUC.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview", interview)
}

// Schedule godoc
// @Summary      Schedule an interview
// @Description  The campaign must be active with at least one question. Consumes one interview from the monthly quota and emails the candidate their link.
// @Tags         interviews
// @Accept       json
// @Produce      json
// @Param        interview  body      domain.ScheduleInterviewRequest  true  "Interview"
// @Success      201        {object}  response.Response{data=domain.ScheduledInterview}
// @Failure      402        {object}  response.Response
// @Failure      409        {object}  response.Response
// @Router       /interviews [post]
// @Security     BearerAuth
func (h *InterviewHandler) Schedule(c *gin.Context) {
	var req domain.ScheduleInterviewRequest
	if !bindJSON(c, &req) {
		return
	}
	scheduled, err := h.interviewUC.Schedule(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Interview scheduled", scheduled)
}

// Reschedule godoc
// @Summary      Reschedule an interview
// @Description  Only scheduled interviews can move. A fresh link is issued.
// @Tags         interviews
// @Accept       json
// @Produce      json
// @Param        id        path      string                             true  "Interview ID"
// @Param        schedule  body      domain.RescheduleInterviewRequest  true  "New times"
// @Success      200       {object}  response.Response{data=domain.ScheduledInterview}
// @Failure      409       {object}  response.Response
// @Router       /interviews/{id}/schedule [put]
// @Security     BearerAuth
func (h *InterviewHandler) Reschedule(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.RescheduleInterviewRequest
	if !bindJSON(c, &req) {
		return
	}
	scheduled, err := h.interviewUC.Reschedule(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview rescheduled", scheduled)
}

// Cancel godoc
// @Summary      Cancel an interview
// @Tags         interviews
// @Produce      json
// @Param        id   path      string  true  "Interview ID"
// @Success      200  {object}  response.Response{data=domain.Interview}
// @Failure      409  {object}  response.Response
// @Router       /interviews/{id}/cancel [post]
// @Security     BearerAuth
func (h *InterviewHandler) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	interview, err := h.interviewUC.Cancel(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview cancelled", interview)
}

// Report godoc
// @Summary      Interview report
// @Description  Per-question answers and scores with totals and pass/fail against the campaign's passing score
// @Tags         interviews
// @Produce      json
// @Param        id   path      string  true  "Interview ID"
// @Success      200  {object}  response.Response{data=domain.InterviewReport}
// @Router       /interviews/{id}/report [get]
// @Security     BearerAuth
func (h *InterviewHandler) Report(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.interviewUC.Report(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Interview report", report)
}

// RecordingURL godoc
// @Summary      Signed recording URL
// @Tags         interviews
// @Produce      json
// @Param        id   path      string  true  "Interview ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /interviews/{id}/recording [get]
// @Security     BearerAuth
func (h *InterviewHandler) RecordingURL(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	url, err := h.interviewUC.RecordingURL(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Recording URL", gin.H{"url": url})
}
