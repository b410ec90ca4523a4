package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/security"
	"github.com/Gradiiai/gradii-sub007/pkg/storage"
	"github.com/Gradiiai/gradii-sub007/pkg/validation"
)

type candidateUsecase struct {
	repo         domain.CandidateRepository
	campaignRepo domain.CampaignRepository
	store        domain.BlobStore
	events       domain.EventPublisher
	validate     *validator.Validate
	uploads      UploadChecks
	policy       security.FilePolicy
	urlTTL       time.Duration
}

type CandidateDeps struct {
	Candidates     domain.CandidateRepository
	Campaigns      domain.CampaignRepository
	Store          domain.BlobStore
	Events         domain.EventPublisher
	Validate       *validator.Validate
	Uploads        UploadChecks
	MaxResumeBytes int64
	SignedURLTTL   time.Duration
}

func NewCandidateUsecase(d CandidateDeps) domain.CandidateUsecase {
	return &candidateUsecase{
		repo:         d.Candidates,
		campaignRepo: d.Campaigns,
		store:        d.Store,
		events:       d.Events,
		validate:     d.Validate,
		uploads:      d.Uploads,
		policy:       security.ResumePolicy(d.MaxResumeBytes),
		urlTTL:       d.SignedURLTTL,
	}
}

// checkCampaign makes sure a linked campaign belongs to the caller's company.
func (u *candidateUsecase) checkCampaign(ctx context.Context, companyID uuid.UUID, campaignID *uuid.UUID) error {
	if campaignID == nil {
		return nil
	}
	if _, err := u.campaignRepo.GetByID(ctx, companyID, *campaignID); err != nil {
		return notFound(err, "Campaign not found")
	}
	return nil
}

func (u *candidateUsecase) create(ctx context.Context, companyID uuid.UUID, input domain.CandidateInput) (*domain.Candidate, error) {
	candidate := &domain.Candidate{
		CompanyID:  companyID,
		CampaignID: input.CampaignID,
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      input.Phone,
		Source:     input.Source,
		Status:     domain.CandidateStatusNew,
	}
	if err := u.repo.Create(ctx, candidate); err != nil {
		return nil, err
	}
	u.events.Publish(ctx, companyID, domain.EventCandidateCreated, candidate)
	return candidate, nil
}

func (u *candidateUsecase) Create(ctx context.Context, input domain.CandidateInput) (*domain.Candidate, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.checkCampaign(ctx, p.CompanyID, input.CampaignID); err != nil {
		return nil, err
	}
	return u.create(ctx, p.CompanyID, input)
}

// BulkCreate validates and inserts each row on its own; failed rows are reported, not fatal.
func (u *candidateUsecase) BulkCreate(ctx context.Context, req domain.BulkCandidateRequest) (*domain.BulkCandidateResult, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.checkCampaign(ctx, p.CompanyID, req.CampaignID); err != nil {
		return nil, err
	}

	result := &domain.BulkCandidateResult{Created: []domain.Candidate{}, Errors: []domain.BulkRowError{}}
	seen := make(map[string]bool, len(req.Candidates))
	for i, row := range req.Candidates {
		if row.CampaignID == nil {
			row.CampaignID = req.CampaignID
		}
		rowErr := func(msg string) {
			result.Errors = append(result.Errors, domain.BulkRowError{Row: i + 1, Email: row.Email, Message: msg})
		}

		if err := u.validate.Struct(row); err != nil {
			rowErr(validation.Summary(validation.FormatValidationErrors(err)))
			continue
		}
		email := strings.ToLower(strings.TrimSpace(row.Email))
		if seen[email] {
			rowErr("Duplicate email in upload")
			continue
		}
		seen[email] = true

		if row.CampaignID != req.CampaignID {
			if err := u.checkCampaign(ctx, p.CompanyID, row.CampaignID); err != nil {
				rowErr("Campaign not found")
				continue
			}
		}

		candidate, err := u.create(ctx, p.CompanyID, row)
		if err != nil {
			if appErr, ok := apperror.As(err); ok && appErr.Code < 500 {
				rowErr(appErr.Message)
				continue
			}
			return nil, err
		}
		result.Created = append(result.Created, *candidate)
	}
	return result, nil
}

func (u *candidateUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	candidate, err := u.repo.GetByID(ctx, p.CompanyID, id)
	if err != nil {
		return nil, notFound(err, "Candidate not found")
	}
	return candidate, nil
}

func (u *candidateUsecase) List(ctx context.Context, filter domain.CandidateFilter) (*domain.PaginatedResult[domain.Candidate], error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	filter.Page = domain.NewPage(filter.Page.Page, filter.Page.PageSize)
	candidates, total, err := u.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(candidates, total, filter.Page), nil
}

func (u *candidateUsecase) Update(ctx context.Context, id uuid.UUID, input domain.CandidateInput) (*domain.Candidate, error) {
	candidate, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.checkCampaign(ctx, candidate.CompanyID, input.CampaignID); err != nil {
		return nil, err
	}

	candidate.CampaignID = input.CampaignID
	candidate.Name = strings.TrimSpace(input.Name)
	candidate.Email = strings.ToLower(strings.TrimSpace(input.Email))
	candidate.Phone = input.Phone
	candidate.Source = input.Source
	if err := u.repo.Update(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (u *candidateUsecase) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CandidateStatus) (*domain.Candidate, error) {
	candidate, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if candidate.Status == status {
		return candidate, nil
	}

	from := candidate.Status
	if err := u.repo.UpdateStatus(ctx, candidate.ID, status); err != nil {
		return nil, notFound(err, "Candidate not found")
	}
	candidate.Status = status
	u.events.Publish(ctx, candidate.CompanyID, domain.EventCandidateStatusChanged, map[string]any{
		"candidate_id": candidate.ID,
		"from":         from,
		"to":           status,
	})
	return candidate, nil
}

func (u *candidateUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	candidate, err := u.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, candidate.CompanyID, candidate.ID); err != nil {
		return notFound(err, "Candidate not found")
	}
	if candidate.ResumeKey != "" {
		warnOnErr(ctx, u.store.Delete(ctx, candidate.ResumeKey), "failed to delete resume blob")
	}
	return nil
}

func (u *candidateUsecase) UploadResume(ctx context.Context, id uuid.UUID, upload domain.FileUpload) (*domain.Candidate, error) {
	candidate, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	info, err := u.uploads.check(ctx, "resume", u.policy, "resume:"+upload.ClientIP, upload)
	if err != nil {
		return nil, err
	}

	key := storage.ResumeKey(candidate.CompanyID, candidate.ID, info.Extension)
	if err := u.store.Put(ctx, key, info.ContentType, upload.Data); err != nil {
		return nil, apperror.Unavailable("Could not store the file", err)
	}

	previous := candidate.ResumeKey
	candidate.ResumeKey = key
	if err := u.repo.Update(ctx, candidate); err != nil {
		warnOnErr(ctx, u.store.Delete(ctx, key), "failed to clean up resume blob")
		return nil, err
	}
	if previous != "" {
		warnOnErr(ctx, u.store.Delete(ctx, previous), "failed to delete previous resume blob")
	}
	return candidate, nil
}

func (u *candidateUsecase) ResumeURL(ctx context.Context, id uuid.UUID) (string, error) {
	candidate, err := u.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if candidate.ResumeKey == "" {
		return "", apperror.NotFound("Candidate has no resume")
	}
	url, err := u.store.SignedURL(ctx, candidate.ResumeKey, u.urlTTL)
	if err != nil {
		return "", apperror.Unavailable("Could not sign the file URL", err)
	}
	return url, nil
}
