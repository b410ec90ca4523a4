package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignStatusDraft  CampaignStatus = "draft"
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
	CampaignStatusClosed CampaignStatus = "closed"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:  {CampaignStatusActive, CampaignStatusClosed},
	CampaignStatusActive: {CampaignStatusPaused, CampaignStatusClosed},
	CampaignStatusPaused: {CampaignStatusActive, CampaignStatusClosed},
}

// CanTransition reports whether a campaign may move from s to next.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type InterviewType string

const (
	InterviewTypeMCQ        InterviewType = "mcq"
	InterviewTypeCoding     InterviewType = "coding"
	InterviewTypeBehavioral InterviewType = "behavioral"
	InterviewTypeCombo      InterviewType = "combo"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Campaign struct {
	ID              uuid.UUID      `json:"id"`
	CompanyID       uuid.UUID      `json:"company_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Department      string         `json:"department,omitempty"`
	Location        string         `json:"location,omitempty"`
	EmploymentType  string         `json:"employment_type,omitempty"`
	Status          CampaignStatus `json:"status"`
	InterviewType   InterviewType  `json:"interview_type"`
	Difficulty      Difficulty     `json:"difficulty"`
	QuestionCount   int            `json:"question_count"`
	DurationMinutes int            `json:"duration_minutes"`
	PassingScore    float64        `json:"passing_score"`
	CreatedBy       uuid.UUID      `json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type CampaignInput struct {
	Title           string        `json:"title" binding:"required,min=3,max=200,no_emoji"`
	Description     string        `json:"description" binding:"max=20000"`
	Department      string        `json:"department" binding:"max=100"`
	Location        string        `json:"location" binding:"max=150"`
	EmploymentType  string        `json:"employment_type" binding:"omitempty,oneof=full_time part_time contract internship"`
	InterviewType   InterviewType `json:"interview_type" binding:"required,interview_type"`
	Difficulty      Difficulty    `json:"difficulty" binding:"required,oneof=easy medium hard"`
	QuestionCount   int           `json:"question_count" binding:"required,min=1,max=50"`
	DurationMinutes int           `json:"duration_minutes" binding:"required,min=5,max=240"`
	PassingScore    float64       `json:"passing_score" binding:"min=0,max=100"`
}

type ChangeCampaignStatusRequest struct {
	Status CampaignStatus `json:"status" binding:"required,oneof=draft active paused closed"`
}

type ImportCampaignRequest struct {
	URL string `json:"url" binding:"required,url,max=2048"`
}

// CampaignDraft is a pre-filled campaign extracted from a job posting page.
type CampaignDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Company     string `json:"company,omitempty"`
	SourceURL   string `json:"source_url"`
}

type CampaignFilter struct {
	Status CampaignStatus
	Search string
	Page   Page
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, companyID uuid.UUID, filter CampaignFilter) ([]Campaign, int64, error)
	Update(ctx context.Context, campaign *Campaign) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// JobPostingImporter extracts campaign fields from a public job posting URL.
type JobPostingImporter interface {
	Import(ctx context.Context, url string) (*CampaignDraft, error)
}

type CampaignUsecase interface {
	Create(ctx context.Context, input CampaignInput) (*Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, status CampaignStatus, search string, page, pageSize int) (*PaginatedResult[Campaign], error)
	Update(ctx context.Context, id uuid.UUID, input CampaignInput) (*Campaign, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status CampaignStatus) (*Campaign, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ImportFromURL(ctx context.Context, url string) (*CampaignDraft, error)
	// Export renders the campaign's candidates and results as an xlsx workbook.
	Export(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}
