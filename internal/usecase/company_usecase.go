package usecase

import (
	"context"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type companyUsecase struct {
	companyRepo domain.CompanyRepository
}

func NewCompanyUsecase(companyRepo domain.CompanyRepository) domain.CompanyUsecase {
	return &companyUsecase{companyRepo: companyRepo}
}

func (u *companyUsecase) GetCompany(ctx context.Context) (*domain.Company, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	company, err := u.companyRepo.GetByID(ctx, p.CompanyID)
	return company, notFound(err, "Company not found")
}

// UpdateCompany changes name and domain; the slug is fixed at registration.
func (u *companyUsecase) UpdateCompany(ctx context.Context, req domain.UpdateCompanyRequest) (*domain.Company, error) {
	company, err := u.GetCompany(ctx)
	if err != nil {
		return nil, err
	}
	company.Name = req.Name
	company.Domain = req.Domain
	if err := u.companyRepo.Update(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}
