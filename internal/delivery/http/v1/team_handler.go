package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/middleware"
	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type TeamHandler struct {
	teamUC    domain.TeamUsecase
	companyUC domain.CompanyUsecase
}

func NewTeamHandler(protected *gin.RouterGroup, teamUC domain.TeamUsecase, companyUC domain.CompanyUsecase) {
	handler := &TeamHandler{teamUC: teamUC, companyUC: companyUC}
	managers := middleware.RequireRoles(domain.RoleOwner, domain.RoleAdmin)

	company := protected.Group("/company")
	{
		company.GET("", handler.GetCompany)
		company.PUT("", managers, handler.UpdateCompany)
	}

	team := protected.Group("/team", managers)
	{
		team.GET("", handler.ListMembers)
		team.POST("", handler.InviteMember)
		team.PATCH("/:id/role", handler.ChangeRole)
		team.PATCH("/:id/disable", handler.Disable)
		team.PATCH("/:id/enable", handler.Enable)
	}
}

// GetCompany godoc
// @Summary      Get the caller's company
// @Tags         company
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Company}
// @Router       /company [get]
// @Security     BearerAuth
func (h *TeamHandler) GetCompany(c *gin.Context) {
	company, err := h.companyUC.GetCompany(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Company", company)
}

// UpdateCompany godoc
// @Summary      Update company name and domain
// @Description  The slug never changes
// @Tags         company
// @Accept       json
// @Produce      json
// @Param        company  body      domain.UpdateCompanyRequest  true  "Company"
// @Success      200      {object}  response.Response{data=domain.Company}
// @Failure      403      {object}  response.Response
// @Router       /company [put]
// @Security     BearerAuth
func (h *TeamHandler) UpdateCompany(c *gin.Context) {
	var req domain.UpdateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.companyUC.UpdateCompany(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Company updated", company)
}

// ListMembers godoc
// @Summary      List team members
// @Tags         team
// @Produce      json
// @Param        page       query     int  false  "Page number"
// @Param        page_size  query     int  false  "Items per page"
// @Success      200        {object}  response.Response{data=domain.PaginatedResult[domain.User]}
// @Router       /team [get]
// @Security     BearerAuth
func (h *TeamHandler) ListMembers(c *gin.Context) {
	page, pageSize := pageParams(c)
	result, err := h.teamUC.ListMembers(c.Request.Context(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Team members", result)
}

// InviteMember godoc
// @Summary      Invite a team member
// @Description  Creates the user with a temporary password and emails it. Counts against the plan's seat limit.
// @Tags         team
// @Accept       json
// @Produce      json
// @Param        member  body      domain.InviteMemberRequest  true  "Member"
// @Success      201     {object}  response.Response{data=domain.User}
// @Failure      402     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Router       /team [post]
// @Security     BearerAuth
func (h *TeamHandler) InviteMember(c *gin.Context) {
	var req domain.InviteMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.teamUC.InviteMember(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Member invited", user)
}

// ChangeRole godoc
// @Summary      Change a member's role
// @Tags         team
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "User ID"
// @Param        role  body      domain.ChangeRoleRequest  true  "Role"
// @Success      200   {object}  response.Response{data=domain.User}
// @Failure      403   {object}  response.Response
// @Router       /team/{id}/role [patch]
// @Security     BearerAuth
func (h *TeamHandler) ChangeRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.teamUC.ChangeRole(c.Request.Context(), id, req.Role)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Role updated", user)
}

// Disable godoc
// @Summary      Disable a member
// @Tags         team
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=domain.User}
// @Router       /team/{id}/disable [patch]
// @Security     BearerAuth
func (h *TeamHandler) Disable(c *gin.Context) {
	h.setDisabled(c, true, "Member disabled")
}

// Enable godoc
// @Summary      Re-enable a member
// @Tags         team
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=domain.User}
// @Failure      402  {object}  response.Response
// @Router       /team/{id}/enable [patch]
// @Security     BearerAuth
func (h *TeamHandler) Enable(c *gin.Context) {
	h.setDisabled(c, false, "Member enabled")
}

func (h *TeamHandler) setDisabled(c *gin.Context, disabled bool, msg string) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.teamUC.SetDisabled(c.Request.Context(), id, disabled)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, msg, user)
}
