package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type AdminHandler struct {
	adminUC domain.AdminUsecase
}

func NewAdminHandler(protected *gin.RouterGroup, adminUC domain.AdminUsecase, superAdmin gin.HandlerFunc) {
	handler := &AdminHandler{adminUC: adminUC}

	admin := protected.Group("/admin", superAdmin)
	{
		// Dashboard stats
		admin.GET("/stats", handler.GetStats)

		// Tenants
		admin.GET("/companies", handler.ListCompanies)
		admin.PATCH("/companies/:id/suspend", handler.SuspendCompany)
		admin.PUT("/companies/:id/plan", handler.SetCompanyPlan)

		// User management
		admin.GET("/users", handler.ListUsers)
		admin.PATCH("/users/:id/disable", handler.DisableUser)

		admin.GET("/audit-events", handler.ListAuditEvents)
	}
}

// GetStats godoc
// @Summary      Get admin dashboard statistics
// @Description  Companies by status, users, campaigns, interviews by status and subscriptions by plan
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=domain.AdminStats}
// @Failure      403  {object}  response.Response
// @Router       /admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminUC.GetStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Dashboard statistics", stats)
}

// ListCompanies godoc
// @Summary      List companies
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "active or suspended"
// @Param        search     query     string  false  "Matches name and slug"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  response.Response{data=domain.PaginatedResult[domain.AdminCompany]}
// @Router       /admin/companies [get]
func (h *AdminHandler) ListCompanies(c *gin.Context) {
	page, pageSize := pageParams(c)
	result, err := h.adminUC.ListCompanies(c.Request.Context(), domain.CompanyStatus(c.Query("status")), c.Query("search"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Companies list", result)
}

// SuspendCompany godoc
// @Summary      Suspend or reinstate a company
// @Description  Members of a suspended company are rejected on every authenticated request
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                        true  "Company ID"
// @Param        body  body      domain.SuspendCompanyRequest  true  "Suspension"
// @Success      200   {object}  response.Response{data=domain.Company}
// @Router       /admin/companies/{id}/suspend [patch]
func (h *AdminHandler) SuspendCompany(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.SuspendCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.adminUC.SuspendCompany(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Company updated", company)
}

// SetCompanyPlan godoc
// @Summary      Override a company's plan
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Company ID"
// @Param        body  body      domain.SetPlanRequest  true  "Plan"
// @Success      200   {object}  response.Response{data=domain.Subscription}
// @Router       /admin/companies/{id}/plan [put]
func (h *AdminHandler) SetCompanyPlan(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.SetPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.adminUC.SetCompanyPlan(c.Request.Context(), id, req.PlanCode)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Plan updated", sub)
}

// ListUsers godoc
// @Summary      List all users
// @Description  Returns paginated list of users with optional role filter
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role       query     string  false  "Filter by role"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  response.Response{data=domain.PaginatedResult[domain.AdminUser]}
// @Failure      403        {object}  response.Response
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	result, err := h.adminUC.ListUsers(c.Request.Context(), domain.Role(c.Query("role")), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Users list", result)
}

// DisableUser godoc
// @Summary      Disable or enable a user
// @Description  Toggles user disabled status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                     true  "User ID"
// @Param        body  body      domain.DisableUserRequest  true  "Disable flag"
// @Success      200   {object}  response.Response{data=domain.User}
// @Failure      403   {object}  response.Response
// @Router       /admin/users/{id}/disable [patch]
func (h *AdminHandler) DisableUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.DisableUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.adminUC.DisableUser(c.Request.Context(), id, req.Disable)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User updated", user)
}

// ListAuditEvents godoc
// @Summary      Security audit log
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int  false  "Page number"
// @Param        page_size  query     int  false  "Items per page"
// @Success      200        {object}  response.Response{data=domain.PaginatedResult[domain.AuditEvent]}
// @Router       /admin/audit-events [get]
func (h *AdminHandler) ListAuditEvents(c *gin.Context) {
	page, pageSize := pageParams(c)
	result, err := h.adminUC.ListAuditEvents(c.Request.Context(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Audit events", result)
}
