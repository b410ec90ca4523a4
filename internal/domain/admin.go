package domain

import (
	"context"

	"github.com/google/uuid"
)

// AdminStats contains super-admin dashboard totals
type AdminStats struct {
	Companies           CompaniesByStatus `json:"companies"`
	Users               int64             `json:"users"`
	Campaigns           int64             `json:"campaigns"`
	Candidates          int64             `json:"candidates"`
	Interviews          map[string]int64  `json:"interviews"`
	SubscriptionsByPlan map[string]int64  `json:"subscriptions_by_plan"`
	SystemHealth        SystemHealth      `json:"system_health"`
}

type CompaniesByStatus struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Suspended int64 `json:"suspended"`
}

type SystemHealth struct {
	Status      string `json:"status"` // healthy, degraded
	LastChecked string `json:"last_checked"`
}

// AdminCompany is a company row in the console with its plan and usage.
type AdminCompany struct {
	Company
	PlanCode           string             `json:"plan_code"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	UserCount          int64              `json:"user_count"`
	CampaignCount      int64              `json:"campaign_count"`
}

type AdminUser struct {
	User
	CompanyName string `json:"company_name,omitempty"`
}

type AdminCompanyFilter struct {
	Status CompanyStatus
	Search string
	Page   Page
}

type SuspendCompanyRequest struct {
	Suspend bool   `json:"suspend"`
	Reason  string `json:"reason" binding:"max=500"`
}

type SetPlanRequest struct {
	PlanCode string `json:"plan_code" binding:"required,max=50"`
}

type DisableUserRequest struct {
	Disable bool `json:"disable"`
}

type AdminRepository interface {
	GetStats(ctx context.Context) (*AdminStats, error)
	ListCompanies(ctx context.Context, filter AdminCompanyFilter) ([]AdminCompany, int64, error)
	ListUsers(ctx context.Context, role Role, page Page) ([]AdminUser, int64, error)
}

type AdminUsecase interface {
	GetStats(ctx context.Context) (*AdminStats, error)
	ListCompanies(ctx context.Context, status CompanyStatus, search string, page, pageSize int) (*PaginatedResult[AdminCompany], error)
	SuspendCompany(ctx context.Context, id uuid.UUID, req SuspendCompanyRequest) (*Company, error)
	SetCompanyPlan(ctx context.Context, id uuid.UUID, planCode string) (*Subscription, error)
	ListUsers(ctx context.Context, role Role, page, pageSize int) (*PaginatedResult[AdminUser], error)
	DisableUser(ctx context.Context, id uuid.UUID, disable bool) (*User, error)
	ListAuditEvents(ctx context.Context, page, pageSize int) (*PaginatedResult[AuditEvent], error)
}
