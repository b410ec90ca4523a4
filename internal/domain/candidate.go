package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CandidateStatus string

const (
	CandidateStatusNew          CandidateStatus = "new"
	CandidateStatusInvited      CandidateStatus = "invited"
	CandidateStatusInterviewing CandidateStatus = "interviewing"
	CandidateStatusCompleted    CandidateStatus = "completed"
	CandidateStatusShortlisted  CandidateStatus = "shortlisted"
	CandidateStatusRejected     CandidateStatus = "rejected"
	CandidateStatusHired        CandidateStatus = "hired"
)

type Candidate struct {
	ID         uuid.UUID       `json:"id"`
	CompanyID  uuid.UUID       `json:"company_id"`
	CampaignID *uuid.UUID      `json:"campaign_id,omitempty"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone,omitempty"`
	ResumeKey  string          `json:"resume_key,omitempty"`
	Status     CandidateStatus `json:"status"`
	Source     string          `json:"source,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type CandidateInput struct {
	CampaignID *uuid.UUID `json:"campaign_id"`
	Name       string     `json:"name" binding:"required,min=2,max=100,valid_name"`
	Email      string     `json:"email" binding:"required,email,max=254"`
	Phone      string     `json:"phone" binding:"omitempty,valid_phone"`
	Source     string     `json:"source" binding:"max=50"`
}

type BulkCandidateRequest struct {
	CampaignID *uuid.UUID       `json:"campaign_id"`
	Candidates []CandidateInput `json:"candidates" binding:"required,min=1,max=500"`
}

type BulkRowError struct {
	Row     int    `json:"row"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type BulkCandidateResult struct {
	Created []Candidate    `json:"created"`
	Errors  []BulkRowError `json:"errors"`
}

type UpdateCandidateStatusRequest struct {
	Status CandidateStatus `json:"status" binding:"required,oneof=new invited interviewing completed shortlisted rejected hired"`
}

type CandidateFilter struct {
	CampaignID *uuid.UUID
	Status     CandidateStatus
	Search     string
	Page       Page
}

// CandidateResult is a candidate joined with their latest interview, used for exports.
type CandidateResult struct {
	Candidate
	InterviewStatus InterviewStatus `json:"interview_status,omitempty"`
	Score           *float64        `json:"score,omitempty"`
	MaxScore        *float64        `json:"max_score,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

type CandidateRepository interface {
	Create(ctx context.Context, candidate *Candidate) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Candidate, error)
	List(ctx context.Context, companyID uuid.UUID, filter CandidateFilter) ([]Candidate, int64, error)
	ListResultsByCampaign(ctx context.Context, companyID, campaignID uuid.UUID) ([]CandidateResult, error)
	Update(ctx context.Context, candidate *Candidate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status CandidateStatus) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

type CandidateUsecase interface {
	Create(ctx context.Context, input CandidateInput) (*Candidate, error)
	BulkCreate(ctx context.Context, req BulkCandidateRequest) (*BulkCandidateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*Candidate, error)
	List(ctx context.Context, filter CandidateFilter) (*PaginatedResult[Candidate], error)
	Update(ctx context.Context, id uuid.UUID, input CandidateInput) (*Candidate, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status CandidateStatus) (*Candidate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadResume(ctx context.Context, id uuid.UUID, upload FileUpload) (*Candidate, error)
	ResumeURL(ctx context.Context, id uuid.UUID) (string, error)
}
