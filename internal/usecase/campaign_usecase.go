package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/export"
	"github.com/Gradiiai/gradii-sub007/pkg/jobimport"
)

type campaignUsecase struct {
	repo          domain.CampaignRepository
	candidateRepo domain.CandidateRepository
	quota         domain.QuotaChecker
	importer      domain.JobPostingImporter
	events        domain.EventPublisher
}

func NewCampaignUsecase(
	repo domain.CampaignRepository,
	candidateRepo domain.CandidateRepository,
	quota domain.QuotaChecker,
	importer domain.JobPostingImporter,
	events domain.EventPublisher,
) domain.CampaignUsecase {
	return &campaignUsecase{
		repo:          repo,
		candidateRepo: candidateRepo,
		quota:         quota,
		importer:      importer,
		events:        events,
	}
}

func applyCampaignInput(c *domain.Campaign, in domain.CampaignInput) {
	c.Title = in.Title
	c.Description = in.Description
	c.Department = in.Department
	c.Location = in.Location
	c.EmploymentType = in.EmploymentType
	c.InterviewType = in.InterviewType
	c.Difficulty = in.Difficulty
	c.QuestionCount = in.QuestionCount
	c.DurationMinutes = in.DurationMinutes
	c.PassingScore = in.PassingScore
}

func (u *campaignUsecase) Create(ctx context.Context, input domain.CampaignInput) (*domain.Campaign, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.quota.CheckCampaignQuota(ctx, p.CompanyID); err != nil {
		return nil, err
	}

	campaign := &domain.Campaign{
		CompanyID: p.CompanyID,
		Status:    domain.CampaignStatusDraft,
		CreatedBy: p.UserID,
	}
	applyCampaignInput(campaign, input)
	if err := u.repo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (u *campaignUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	campaign, err := u.repo.GetByID(ctx, p.CompanyID, id)
	if err != nil {
		return nil, notFound(err, "Campaign not found")
	}
	return campaign, nil
}

func (u *campaignUsecase) List(ctx context.Context, status domain.CampaignStatus, search string, page, pageSize int) (*domain.PaginatedResult[domain.Campaign], error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	pg := domain.NewPage(page, pageSize)
	campaigns, total, err := u.repo.List(ctx, p.CompanyID, domain.CampaignFilter{Status: status, Search: search, Page: pg})
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(campaigns, total, pg), nil
}

func (u *campaignUsecase) Update(ctx context.Context, id uuid.UUID, input domain.CampaignInput) (*domain.Campaign, error) {
	campaign, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status == domain.CampaignStatusClosed {
		return nil, apperror.Conflict("Closed campaigns cannot be edited")
	}
	applyCampaignInput(campaign, input)
	if err := u.repo.Update(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (u *campaignUsecase) ChangeStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) (*domain.Campaign, error) {
	campaign, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status == status {
		return campaign, nil
	}
	if !campaign.Status.CanTransition(status) {
		return nil, apperror.BadRequest(fmt.Sprintf("Cannot move a campaign from %s to %s", campaign.Status, status))
	}

	from := campaign.Status
	campaign.Status = status
	if err := u.repo.Update(ctx, campaign); err != nil {
		return nil, err
	}
	u.events.Publish(ctx, campaign.CompanyID, domain.EventCampaignStatusChanged, map[string]any{
		"campaign_id": campaign.ID,
		"from":        from,
		"to":          status,
	})
	return campaign, nil
}

func (u *campaignUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return err
	}
	return notFound(u.repo.Delete(ctx, p.CompanyID, id), "Campaign not found")
}

func (u *campaignUsecase) ImportFromURL(ctx context.Context, url string) (*domain.CampaignDraft, error) {
	if _, err := companyPrincipal(ctx); err != nil {
		return nil, err
	}
	draft, err := u.importer.Import(ctx, url)
	switch {
	case err == nil:
		return draft, nil
	case errors.Is(err, jobimport.ErrInvalidURL), errors.Is(err, jobimport.ErrBlockedAddress):
		return nil, apperror.BadRequest(err.Error())
	case errors.Is(err, jobimport.ErrNoContent):
		return nil, apperror.New(422, "No job posting content found at this URL", err)
	default:
		return nil, apperror.BadGateway("Could not fetch the job posting", err)
	}
}

// Export returns the workbook and a download file name.
func (u *campaignUsecase) Export(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	campaign, err := u.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	results, err := u.candidateRepo.ListResultsByCampaign(ctx, campaign.CompanyID, campaign.ID)
	if err != nil {
		return nil, "", err
	}
	data, err := export.CampaignResults(campaign, results)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}
	return data, fmt.Sprintf("%s-results.xlsx", slugify(campaign.Title)), nil
}
