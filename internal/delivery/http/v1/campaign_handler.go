package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CampaignHandler struct {
	campaignUC domain.CampaignUsecase
}

func NewCampaignHandler(protected *gin.RouterGroup, campaignUC domain.CampaignUsecase, editors gin.HandlerFunc) {
	handler := &CampaignHandler{campaignUC: campaignUC}

	campaigns := protected.Group("/campaigns")
	{
		campaigns.GET("", handler.List)
		campaigns.GET("/:id", handler.Get)
		campaigns.GET("/:id/export", handler.Export)

		campaigns.POST("", editors, handler.Create)
		campaigns.POST("/import", editors, handler.Import)
		campaigns.PUT("/:id", editors, handler.Update)
		campaigns.PATCH("/:id/status", editors, handler.ChangeStatus)
		campaigns.DELETE("/:id", editors, handler.Delete)
	}
}

// List godoc
// @Summary      List campaigns
// @Tags         campaigns
// @Produce      json
// @Param        status     query     string  false  "draft, active, paused or closed"
// @Param        search     query     string  false  "Matches title and department"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  response.Response{data=domain.PaginatedResult[domain.Campaign]}
// @Router       /campaigns [get]
// @Security     BearerAuth
func (h *CampaignHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	result, err := h.campaignUC.List(c.Request.Context(), domain.CampaignStatus(c.Query("status")), c.Query("search"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Campaigns", result)
}

// Get godoc
// @Summary      Get a campaign
// @Tags         campaigns
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  response.Response{data=domain.Campaign}
// @Failure      404  {object}  response.Response
// @Router       /campaigns/{id} [get]
// @Security     BearerAuth
func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	campaign, err := h.campaignUC.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Campaign", campaign)
}

// Create godoc
// @Summary      Create a draft campaign
// @Description  Fails with 402 when the plan's open campaign limit is reached
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        campaign  body      domain.CampaignInput  true  "Campaign"
// @Success      201       {object}  response.Response{data=domain.Campaign}
// @Failure      402       {object}  response.Response
// @Router       /campaigns [post]
// @Security     BearerAuth
func (h *CampaignHandler) Create(c *gin.Context) {
	var input domain.CampaignInput
	if !bindJSON(c, &input) {
		return
	}
	campaign, err := h.campaignUC.Create(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Campaign created", campaign)
}

// Import godoc
// @Summary      Prefill a campaign from a job posting URL
// @Description  Fetches the page and extracts title, description and location. Nothing is saved.
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        import  body      domain.ImportCampaignRequest  true  "Posting URL"
// @Success      200     {object}  response.Response{data=domain.CampaignDraft}
// @Failure      422     {object}  response.Response
// @Failure      502     {object}  response.Response
// @Router       /campaigns/import [post]
// @Security     BearerAuth
func (h *CampaignHandler) Import(c *gin.Context) {
	var req domain.ImportCampaignRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := h.campaignUC.ImportFromURL(c.Request.Context(), req.URL)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job posting imported", draft)
}

// Update godoc
// @Summary      Update a campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id        path      string                true  "Campaign ID"
// @Param        campaign  body      domain.CampaignInput  true  "Campaign"
// @Success      200       {object}  response.Response{data=domain.Campaign}
// @Failure      409       {object}  response.Response
// @Router       /campaigns/{id} [put]
// @Security     BearerAuth
func (h *CampaignHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input domain.CampaignInput
	if !bindJSON(c, &input) {
		return
	}
	campaign, err := h.campaignUC.Update(c.Request.Context(), id, input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Campaign updated", campaign)
}

// ChangeStatus godoc
// @Summary      Move a campaign through its lifecycle
// @Description  draft to active, active and paused both ways, anything open to closed
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id      path      string                              true  "Campaign ID"
// @Param        status  body      domain.ChangeCampaignStatusRequest  true  "Status"
// @Success      200     {object}  response.Response{data=domain.Campaign}
// @Failure      409     {object}  response.Response
// @Router       /campaigns/{id}/status [patch]
// @Security     BearerAuth
func (h *CampaignHandler) ChangeStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.ChangeCampaignStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	campaign, err := h.campaignUC.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Campaign status updated", campaign)
}

// Delete godoc
// @Summary      Delete a campaign
// @Tags         campaigns
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  response.Response
// @Router       /campaigns/{id} [delete]
// @Security     BearerAuth
func (h *CampaignHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.campaignUC.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Campaign deleted", nil)
}

// Export godoc
// @Summary      Export campaign results
// @Description  Candidates with their interview status and score as an xlsx workbook
// @Tags         campaigns
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id   path  string  true  "Campaign ID"
// @Success      200  {file}  file
// @Router       /campaigns/{id}/export [get]
// @Security     BearerAuth
func (h *CampaignHandler) Export(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.campaignUC.Export(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
