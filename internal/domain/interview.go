package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type InterviewStatus string

const (
	InterviewStatusScheduled  InterviewStatus = "scheduled"
	InterviewStatusInProgress InterviewStatus = "in_progress"
	InterviewStatusCompleted  InterviewStatus = "completed"
	InterviewStatusCancelled  InterviewStatus = "cancelled"
	InterviewStatusExpired    InterviewStatus = "expired"
)

const (
	// DefaultInterviewWindow is how long a candidate has after scheduled_at.
	DefaultInterviewWindow = 7 * 24 * time.Hour
	// EarlyStartGrace lets candidates join shortly before the scheduled time.
	EarlyStartGrace = 15 * time.Minute
)

type Interview struct {
	ID              uuid.UUID       `json:"id"`
	CompanyID       uuid.UUID       `json:"company_id"`
	CampaignID      uuid.UUID       `json:"campaign_id"`
	CandidateID     uuid.UUID       `json:"candidate_id"`
	InterviewerID   *uuid.UUID      `json:"interviewer_id,omitempty"`
	Status          InterviewStatus `json:"status"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	DeadlineAt      time.Time       `json:"deadline_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CurrentPosition int             `json:"current_position"`
	Score           float64         `json:"score"`
	MaxScore        float64         `json:"max_score"`
	RecordingKey    string          `json:"recording_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Read-only joined fields.
	CandidateName  string `json:"candidate_name,omitempty"`
	CandidateEmail string `json:"candidate_email,omitempty"`
	CampaignTitle  string `json:"campaign_title,omitempty"`
}

type Answer struct {
	ID             uuid.UUID `json:"id"`
	InterviewID    uuid.UUID `json:"interview_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	Answer         string    `json:"answer,omitempty"`
	SelectedOption *int      `json:"selected_option,omitempty"`
	Score          float64   `json:"score"`
	Feedback       string    `json:"feedback,omitempty"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// InterviewEvent is an analytics record; writes are best-effort.
type InterviewEvent struct {
	ID          uuid.UUID       `json:"id"`
	InterviewID uuid.UUID       `json:"interview_id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ScheduleInterviewRequest struct {
	CampaignID    uuid.UUID  `json:"campaign_id" binding:"required"`
	CandidateID   uuid.UUID  `json:"candidate_id" binding:"required"`
	ScheduledAt   time.Time  `json:"scheduled_at" binding:"required,future_time"`
	DeadlineAt    *time.Time `json:"deadline_at"`
	InterviewerID *uuid.UUID `json:"interviewer_id"`
}

type RescheduleInterviewRequest struct {
	ScheduledAt time.Time  `json:"scheduled_at" binding:"required,future_time"`
	DeadlineAt  *time.Time `json:"deadline_at"`
}

type ScheduledInterview struct {
	Interview *Interview `json:"interview"`
	Link      string     `json:"link"`
}

type InterviewFilter struct {
	CampaignID  *uuid.UUID
	CandidateID *uuid.UUID
	Status      InterviewStatus
	From        *time.Time
	To          *time.Time
	Page        Page
}

type ReportItem struct {
	Question Question `json:"question"`
	Answer   *Answer  `json:"answer,omitempty"`
}

type InterviewReport struct {
	Interview  *Interview   `json:"interview"`
	Items      []ReportItem `json:"items"`
	Answered   int          `json:"answered"`
	Total      int          `json:"total"`
	Percentage float64      `json:"percentage"`
	Passed     bool         `json:"passed"`
}

// SessionState is what a candidate sees while taking an interview.
type SessionState struct {
	InterviewID   uuid.UUID          `json:"interview_id"`
	Status        InterviewStatus    `json:"status"`
	CampaignTitle string             `json:"campaign_title"`
	Position      int                `json:"position"`
	Total         int                `json:"total"`
	DeadlineAt    time.Time          `json:"deadline_at"`
	Question      *CandidateQuestion `json:"question,omitempty"`
	Done          bool               `json:"done"`
}

type SubmitAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	Answer         string    `json:"answer" binding:"max=20000"`
	SelectedOption *int      `json:"selected_option" binding:"omitempty,min=0"`
}

type InterviewResult struct {
	InterviewID uuid.UUID       `json:"interview_id"`
	Status      InterviewStatus `json:"status"`
	Answered    int             `json:"answered"`
	Total       int             `json:"total"`
	CompletedAt time.Time       `json:"completed_at"`
}

type InterviewRepository interface {
	Create(ctx context.Context, interview *Interview) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Interview, error)
	// GetForSession loads an interview without a company scope, for token-authenticated candidates.
	GetForSession(ctx context.Context, id uuid.UUID) (*Interview, error)
	List(ctx context.Context, companyID uuid.UUID, filter InterviewFilter) ([]Interview, int64, error)
	// CountLiveByCampaign counts interviews of a campaign that were not cancelled.
	CountLiveByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
	// Transition writes status, timestamps and score while the row is still in status from
	// at interview.CurrentPosition. ErrStale otherwise.
	Transition(ctx context.Context, interview *Interview, from InterviewStatus) error
	// Advance moves an in-progress interview from position to position+1. ErrStale otherwise.
	Advance(ctx context.Context, id uuid.UUID, position int) error
	// Reschedule moves the window of a scheduled interview. ErrStale otherwise.
	Reschedule(ctx context.Context, interview *Interview) error
	// SetRecordingKey stores key on a started or completed interview and returns the key it replaced.
	SetRecordingKey(ctx context.Context, id uuid.UUID, key string) (string, error)
	SaveAnswer(ctx context.Context, answer *Answer) error
	ListAnswers(ctx context.Context, interviewID uuid.UUID) ([]Answer, error)
	RecordEvent(ctx context.Context, event *InterviewEvent) error
}

// InterviewTokens issues and verifies candidate interview links.
type InterviewTokens interface {
	IssueInterviewToken(interviewID uuid.UUID, expiresAt time.Time) (string, error)
	ParseInterviewToken(token string) (uuid.UUID, error)
}

type InterviewUsecase interface {
	Schedule(ctx context.Context, req ScheduleInterviewRequest) (*ScheduledInterview, error)
	Reschedule(ctx context.Context, id uuid.UUID, req RescheduleInterviewRequest) (*ScheduledInterview, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Interview, error)
	Get(ctx context.Context, id uuid.UUID) (*Interview, error)
	List(ctx context.Context, filter InterviewFilter) (*PaginatedResult[Interview], error)
	Report(ctx context.Context, id uuid.UUID) (*InterviewReport, error)
	RecordingURL(ctx context.Context, id uuid.UUID) (string, error)
}

type InterviewSessionUsecase interface {
	Start(ctx context.Context, token string) (*SessionState, error)
	Current(ctx context.Context, token string) (*SessionState, error)
	SubmitAnswer(ctx context.Context, token string, req SubmitAnswerRequest) (*SessionState, error)
	Complete(ctx context.Context, token string) (*InterviewResult, error)
	UploadRecording(ctx context.Context, token string, upload FileUpload) error
}
