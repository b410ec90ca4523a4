package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type CandidateHandler struct {
	candidateUC    domain.CandidateUsecase
	maxResumeBytes int64
}

func NewCandidateHandler(protected *gin.RouterGroup, candidateUC domain.CandidateUsecase, editors, uploadLimit gin.HandlerFunc, maxResumeBytes int64) {
	handler := &CandidateHandler{candidateUC: candidateUC, maxResumeBytes: maxResumeBytes}

	candidates := protected.Group("/candidates")
	{
		candidates.GET("", handler.List)
		candidates.GET("/:id", handler.Get)
		candidates.GET("/:id/resume", handler.ResumeURL)

		candidates.POST("", editors, handler.Create)
		candidates.POST("/bulk", editors, handler.BulkCreate)
		candidates.PUT("/:id", editors, handler.Update)
		candidates.PATCH("/:id/status", editors, handler.UpdateStatus)
		candidates.DELETE("/:id", editors, handler.Delete)
		candidates.POST("/:id/resume", editors, uploadLimit, handler.UploadResume)
	}
}

// List godoc
// @Summary      List candidates
// @Tags         candidates
// @Produce      json
// @Param        campaign_id  query     string  false  "Campaign ID"
// @Param        status       query     string  false  "Pipeline status"
// @Param        search       query     string  false  "Matches name and email"
// @Param        page         query     int     false  "Page number"
// @Param        page_size    query     int     false  "Items per page"
// @Success      200          {object}  response.Response{data=domain.PaginatedResult[domain.Candidate]}
// @Router       /candidates [get]
// @Security     BearerAuth
func (h *CandidateHandler) List(c *gin.Context) {
	campaignID, ok := optionalUUIDQuery(c, "campaign_id")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	result, err := h.candidateUC.List(c.Request.Context(), domain.CandidateFilter{
		CampaignID: campaignID,
		Status:     domain.CandidateStatus(c.Query("status")),
		Search:     c.Query("search"),
		Page:       domain.Page{Page: page, PageSize: pageSize},
	})
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Candidates", result)
}

// Get godoc
// @Summary      Get a candidate
// @Tags         candidates
// @Produce      json
// @Param        id   path      string  true  "Candidate ID"
// @Success      200  {object}  response.Response{data=domain.Candidate}
// @Failure      404  {object}  response.Response
// @Router       /candidates/{id} [get]
// @Security     BearerAuth
func (h *CandidateHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	candidate, err := h.candidateUC.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Candidate", candidate)
}

// Create godoc
// @Summary      Add a candidate
// @Tags         candidates
// @Accept       json
// @Produce      json
// @Param        candidate  body      domain.CandidateInput  true  "Candidate"
// @Success      201        {object}  response.Response{data=domain.Candidate}
// @Failure      409        {object}  response.Response
// @Router       /candidates [post]
// @Security     BearerAuth
func (h *CandidateHandler) Create(c *gin.Context) {
	var input domain.CandidateInput
	if !bindJSON(c, &input) {
		return
	}
	candidate, err := h.candidateUC.Create(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Candidate created", candidate)
}

// BulkCreate godoc
// @Summary      Add candidates in bulk
// @Description  Each row is validated on its own. Rows that fail are reported with their index and do not stop the others.
// @Tags         candidates
// @Accept       json
// @Produce      json
// @Param        candidates  body      domain.BulkCandidateRequest  true  "Candidates"
// @Success      200         {object}  response.Response{data=domain.BulkCandidateResult}
// @Router       /candidates/bulk [post]
// @Security     BearerAuth
func (h *CandidateHandler) BulkCreate(c *gin.Context) {
	var req domain.BulkCandidateRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.candidateUC.BulkCreate(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Bulk import processed", result)
}

// Update godoc
// @Summary      Update a candidate
// @Tags         candidates
// @Accept       json
// @Produce      json
// @Param        id         path      string                 true  "Candidate ID"
// @Param        candidate  body      domain.CandidateInput  true  "Candidate"
// @Success      200        {object}  response.Response{data=domain.Candidate}
// @Router       /candidates/{id} [put]
// @Security     BearerAuth
func (h *CandidateHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input domain.CandidateInput
	if !bindJSON(c, &input) {
		return
	}
	candidate, err := h.candidateUC.Update(c.Request.Context(), id, input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Candidate updated", candidate)
}

// UpdateStatus godoc
// @Summary      Move a candidate through the pipeline
// @Tags         candidates
// @Accept       json
// @Produce      json
// @Param        id      path      string                               true  "Candidate ID"
// @Param        status  body      domain.UpdateCandidateStatusRequest  true  "Status"
// @Success      200     {object}  response.Response{data=domain.Candidate}
// @Router       /candidates/{id}/status [patch]
// @Security     BearerAuth
func (h *CandidateHandler) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.UpdateCandidateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	candidate, err := h.candidateUC.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Candidate status updated", candidate)
}

// Delete godoc
// @Summary      Delete a candidate
// @Tags         candidates
// @Produce      json
// @Param        id   path      string  true  "Candidate ID"
// @Success      200  {object}  response.Response
// @Router       /candidates/{id} [delete]
// @Security     BearerAuth
func (h *CandidateHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.candidateUC.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Candidate deleted", nil)
}

// UploadResume godoc
// @Summary      Upload a resume
// @Description  PDF, DOC, DOCX or TXT. Checked by extension, magic bytes, MIME type, size and antivirus.
// @Tags         candidates
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Candidate ID"
// @Param        file  formData  file    true  "Resume"
// @Success      200   {object}  response.Response{data=domain.Candidate}
// @Failure      400   {object}  response.Response
// @Failure      429   {object}  response.Response
// @Router       /candidates/{id}/resume [post]
// @Security     BearerAuth
func (h *CandidateHandler) UploadResume(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	upload, ok := readUpload(c, h.maxResumeBytes)
	if !ok {
		return
	}
	candidate, err := h.candidateUC.UploadResume(c.Request.Context(), id, upload)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Resume uploaded", candidate)
}

// ResumeURL godoc
// @Summary      Signed resume download URL
// @Tags         candidates
// @Produce      json
// @Param        id   path      string  true  "Candidate ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /candidates/{id}/resume [get]
// @Security     BearerAuth
func (h *CandidateHandler) ResumeURL(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	url, err := h.candidateUC.ResumeURL(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Resume URL", gin.H{"url": url})
}
