package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

type Company struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Domain    string        `json:"domain,omitempty"`
	Status    CompanyStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type UpdateCompanyRequest struct {
	Name   string `json:"name" binding:"required,min=2,max=120,valid_name"`
	Domain string `json:"domain" binding:"omitempty,fqdn"`
}

type CompanyRepository interface {
	Create(ctx context.Context, company *Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)
	GetBySlug(ctx context.Context, slug string) (*Company, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, company *Company) error
	SetStatus(ctx context.Context, id uuid.UUID, status CompanyStatus) error
}

type CompanyUsecase interface {
	GetCompany(ctx context.Context) (*Company, error)
	UpdateCompany(ctx context.Context, req UpdateCompanyRequest) (*Company, error)
}

// Transactor runs fn inside a database transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
