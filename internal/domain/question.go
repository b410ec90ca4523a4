package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeMCQ        QuestionType = "mcq"
	QuestionTypeCoding     QuestionType = "coding"
	QuestionTypeBehavioral QuestionType = "behavioral"
)

// DefaultPoints is the weight of a question when none is given.
func (t QuestionType) DefaultPoints() int {
	switch t {
	case QuestionTypeCoding:
		return 5
	case QuestionTypeBehavioral:
		return 3
	default:
		return 1
	}
}

type Question struct {
	ID             uuid.UUID    `json:"id"`
	CampaignID     uuid.UUID    `json:"campaign_id"`
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	Options        []string     `json:"options,omitempty"`
	CorrectOption  *int         `json:"correct_option,omitempty"`
	ExpectedAnswer string       `json:"expected_answer,omitempty"`
	Language       string       `json:"language,omitempty"`
	Difficulty     Difficulty   `json:"difficulty"`
	Points         int          `json:"points"`
	Position       int          `json:"position"`
	CreatedAt      time.Time    `json:"created_at"`
}

// CandidateQuestion is a question as shown to a candidate, without the answer key.
type CandidateQuestion struct {
	ID       uuid.UUID    `json:"id"`
	Type     QuestionType `json:"type"`
	Prompt   string       `json:"prompt"`
	Options  []string     `json:"options,omitempty"`
	Language string       `json:"language,omitempty"`
	Points   int          `json:"points"`
	Position int          `json:"position"`
}

func (q Question) ForCandidate() CandidateQuestion {
	return CandidateQuestion{
		ID:       q.ID,
		Type:     q.Type,
		Prompt:   q.Prompt,
		Options:  q.Options,
		Language: q.Language,
		Points:   q.Points,
		Position: q.Position,
	}
}

type QuestionInput struct {
	Type           QuestionType `json:"type" binding:"required,question_type"`
	Prompt         string       `json:"prompt" binding:"required,min=5,max=5000"`
	Options        []string     `json:"options" binding:"omitempty,max=6,dive,required,max=500"`
	CorrectOption  *int         `json:"correct_option" binding:"omitempty,min=0"`
	ExpectedAnswer string       `json:"expected_answer" binding:"max=10000"`
	Language       string       `json:"language" binding:"max=30"`
	Difficulty     Difficulty   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Points         int          `json:"points" binding:"omitempty,min=1,max=100"`
}

type GenerateQuestionsRequest struct {
	Type       InterviewType `json:"type" binding:"omitempty,interview_type"`
	Count      int           `json:"count" binding:"omitempty,min=1,max=50"`
	Difficulty Difficulty    `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Async      bool          `json:"async"`
}

type ReorderQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1"`
}

// QuestionSpec describes one batch of questions to be generated.
type QuestionSpec struct {
	Type        QuestionType
	Count       int
	Difficulty  Difficulty
	Title       string
	Description string
}

// AnswerScore is the evaluation of a free-text answer, Ratio in [0,1].
type AnswerScore struct {
	Ratio    float64 `json:"ratio"`
	Feedback string  `json:"feedback"`
}

// InterviewAI generates and evaluates interview questions with an LLM.
type InterviewAI interface {
	GenerateQuestions(ctx context.Context, spec QuestionSpec) ([]Question, error)
	ScoreAnswer(ctx context.Context, question Question, answer string) (*AnswerScore, error)
}

type QuestionRepository interface {
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Question, error)
	GetByID(ctx context.Context, campaignID, id uuid.UUID) (*Question, error)
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error)
	ReplaceForCampaign(ctx context.Context, campaignID uuid.UUID, questions []Question) error
	Create(ctx context.Context, question *Question) error
	Update(ctx context.Context, question *Question) error
	Delete(ctx context.Context, campaignID, id uuid.UUID) error
	SetPositions(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) error
}

type QuestionUsecase interface {
	List(ctx context.Context, campaignID uuid.UUID) ([]Question, error)
	Generate(ctx context.Context, campaignID uuid.UUID, req GenerateQuestionsRequest) ([]Question, error)
	// RunGeneration generates without a request principal, for background jobs.
	RunGeneration(ctx context.Context, companyID, campaignID uuid.UUID, req GenerateQuestionsRequest) ([]Question, error)
	Create(ctx context.Context, campaignID uuid.UUID, input QuestionInput) (*Question, error)
	Update(ctx context.Context, campaignID, id uuid.UUID, input QuestionInput) (*Question, error)
	Delete(ctx context.Context, campaignID, id uuid.UUID) error
	Reorder(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) ([]Question, error)
}
