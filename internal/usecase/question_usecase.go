package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/llm"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/metrics"
)

type questionUsecase struct {
	repo         domain.QuestionRepository
	campaignRepo domain.CampaignRepository
	interviews   domain.InterviewRepository
	ai           domain.InterviewAI
	jobs         domain.JobQueue
	events       domain.EventPublisher
	metrics      *metrics.Metrics
}

func NewQuestionUsecase(
	repo domain.QuestionRepository,
	campaignRepo domain.CampaignRepository,
	interviews domain.InterviewRepository,
	ai domain.InterviewAI,
	jobs domain.JobQueue,
	events domain.EventPublisher,
	m *metrics.Metrics,
) domain.QuestionUsecase {
	return &questionUsecase{
		repo:         repo,
		campaignRepo: campaignRepo,
		interviews:   interviews,
		ai:           ai,
		jobs:         jobs,
		events:       events,
		metrics:      m,
	}
}

// campaign loads a campaign of the caller's company.
func (u *questionUsecase) campaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	c, err := u.campaignRepo.GetByID(ctx, p.CompanyID, campaignID)
	if err != nil {
		return nil, notFound(err, "Campaign not found")
	}
	return c, nil
}

// editable rejects changes to a question set that interviews already point at.
// Answers reference questions and positions, so the set is frozen from the first scheduling.
func (u *questionUsecase) editable(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.Status == domain.CampaignStatusClosed {
		return apperror.Conflict("Closed campaigns cannot be edited")
	}
	n, err := u.interviews.CountLiveByCampaign(ctx, campaign.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.Conflict("Questions cannot change once interviews are scheduled for this campaign")
	}
	return nil
}

func (u *questionUsecase) List(ctx context.Context, campaignID uuid.UUID) ([]domain.Question, error) {
	if _, err := u.campaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return u.repo.ListByCampaign(ctx, campaignID)
}

// Generate replaces the campaign's questions. Async requests are queued and return nil.
func (u *questionUsecase) Generate(ctx context.Context, campaignID uuid.UUID, req domain.GenerateQuestionsRequest) ([]domain.Question, error) {
	campaign, err := u.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := u.editable(ctx, campaign); err != nil {
		return nil, err
	}
	if req.Async {
		if err := u.jobs.EnqueueQuestionGeneration(ctx, campaign.CompanyID, campaign.ID, req); err != nil {
			return nil, apperror.Unavailable("Could not queue question generation", err)
		}
		return nil, nil
	}
	return u.generate(ctx, campaign, req)
}

func (u *questionUsecase) RunGeneration(ctx context.Context, companyID, campaignID uuid.UUID, req domain.GenerateQuestionsRequest) ([]domain.Question, error) {
	campaign, err := u.campaignRepo.GetByID(ctx, companyID, campaignID)
	if err != nil {
		return nil, notFound(err, "Campaign not found")
	}
	return u.generate(ctx, campaign, req)
}

func (u *questionUsecase) generate(ctx context.Context, campaign *domain.Campaign, req domain.GenerateQuestionsRequest) ([]domain.Question, error) {
	interviewType := req.Type
	if interviewType == "" {
		interviewType = campaign.InterviewType
	}
	count := req.Count
	if count <= 0 {
		count = campaign.QuestionCount
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = campaign.Difficulty
	}

	specs := questionSpecs(interviewType, count)
	batches := make([][]domain.Question, len(specs))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		spec.Difficulty = difficulty
		spec.Title = campaign.Title
		spec.Description = campaign.Description
		g.Go(func() error {
			qs, err := u.ai.GenerateQuestions(gctx, spec)
			if err != nil {
				return err
			}
			batches[i] = qs
			return nil
		})
	}
	err := g.Wait()
	u.metrics.ObserveLLM(ctx, "generate_questions", time.Since(start), err)
	if err != nil {
		logger.Error(ctx, "question generation failed",
			zap.String("campaign_id", campaign.ID.String()), zap.String("type", string(interviewType)), zap.Error(err))
		var invalid *llm.ValidationError
		if errors.As(err, &invalid) {
			return nil, apperror.BadGateway("The AI returned questions in an unexpected format, try again", err)
		}
		return nil, apperror.BadGateway("Question generation failed", err)
	}

	questions := make([]domain.Question, 0, count)
	for i, batch := range batches {
		questions = append(questions, batch...)
		u.metrics.QuestionsGenerated(ctx, string(specs[i].Type), len(batch))
	}
	if len(questions) == 0 {
		return nil, apperror.BadGateway("The AI returned no questions", nil)
	}
	for i := range questions {
		questions[i].CampaignID = campaign.ID
		questions[i].Position = i
	}

	// Interviews may have been scheduled while the model was running.
	if err := u.editable(ctx, campaign); err != nil {
		return nil, err
	}
	if err := u.repo.ReplaceForCampaign(ctx, campaign.ID, questions); err != nil {
		return nil, err
	}
	u.events.Publish(ctx, campaign.CompanyID, domain.EventQuestionsGenerated, map[string]any{
		"campaign_id": campaign.ID,
		"type":        interviewType,
		"count":       len(questions),
	})
	return questions, nil
}

// questionSpecs splits count over the batches of an interview type. Combo interviews divide
// evenly across mcq, coding and behavioral, giving the remainder to mcq first, then coding.
func questionSpecs(t domain.InterviewType, count int) []domain.QuestionSpec {
	if t != domain.InterviewTypeCombo {
		return []domain.QuestionSpec{{Type: domain.QuestionType(t), Count: count}}
	}
	base, rem := count/3, count%3
	specs := []domain.QuestionSpec{
		{Type: domain.QuestionTypeMCQ, Count: base},
		{Type: domain.QuestionTypeCoding, Count: base},
		{Type: domain.QuestionTypeBehavioral, Count: base},
	}
	for i := 0; i < rem; i++ {
		specs[i].Count++
	}
	out := specs[:0]
	for _, s := range specs {
		if s.Count > 0 {
			out = append(out, s)
		}
	}
	return out
}

func validateQuestionInput(in domain.QuestionInput) error {
	if strings.TrimSpace(in.Prompt) == "" {
		return apperror.BadRequest("prompt: is required")
	}
	switch in.Type {
	case domain.QuestionTypeMCQ:
		if len(in.Options) < 2 || len(in.Options) > 6 {
			return apperror.BadRequest("options: multiple choice questions need 2 to 6 options")
		}
		if in.CorrectOption == nil || *in.CorrectOption < 0 || *in.CorrectOption >= len(in.Options) {
			return apperror.BadRequest("correct_option: must point at one of the options")
		}
	case domain.QuestionTypeCoding:
		if strings.TrimSpace(in.Language) == "" {
			return apperror.BadRequest("language: is required for coding questions")
		}
	}
	return nil
}

func applyQuestionInput(q *domain.Question, in domain.QuestionInput, fallback domain.Difficulty) {
	q.Type = in.Type
	q.Prompt = strings.TrimSpace(in.Prompt)
	q.ExpectedAnswer = in.ExpectedAnswer
	q.Language = in.Language
	q.Difficulty = in.Difficulty
	if q.Difficulty == "" {
		q.Difficulty = fallback
	}
	q.Points = in.Points
	if q.Points <= 0 {
		q.Points = in.Type.DefaultPoints()
	}
	if in.Type == domain.QuestionTypeMCQ {
		q.Options = in.Options
		q.CorrectOption = in.CorrectOption
	} else {
		q.Options = nil
		q.CorrectOption = nil
	}
}

func (u *questionUsecase) Create(ctx context.Context, campaignID uuid.UUID, input domain.QuestionInput) (*domain.Question, error) {
	campaign, err := u.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := u.editable(ctx, campaign); err != nil {
		return nil, err
	}
	if err := validateQuestionInput(input); err != nil {
		return nil, err
	}
	q := &domain.Question{CampaignID: campaign.ID}
	applyQuestionInput(q, input, campaign.Difficulty)
	if err := u.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (u *questionUsecase) Update(ctx context.Context, campaignID, id uuid.UUID, input domain.QuestionInput) (*domain.Question, error) {
	campaign, err := u.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := u.editable(ctx, campaign); err != nil {
		return nil, err
	}
	if err := validateQuestionInput(input); err != nil {
		return nil, err
	}
	q, err := u.repo.GetByID(ctx, campaign.ID, id)
	if err != nil {
		return nil, notFound(err, "Question not found")
	}
	applyQuestionInput(q, input, campaign.Difficulty)
	if err := u.repo.Update(ctx, q); err != nil {
		return nil, notFound(err, "Question not found")
	}
	return q, nil
}

func (u *questionUsecase) Delete(ctx context.Context, campaignID, id uuid.UUID) error {
	campaign, err := u.campaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := u.editable(ctx, campaign); err != nil {
		return err
	}
	return notFound(u.repo.Delete(ctx, campaignID, id), "Question not found")
}

// Reorder rewrites positions to match ids; ids must be exactly the campaign's questions.
func (u *questionUsecase) Reorder(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) ([]domain.Question, error) {
	campaign, err := u.campaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := u.editable(ctx, campaign); err != nil {
		return nil, err
	}
	existing, err := u.repo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(existing) != len(ids) {
		return nil, apperror.BadRequest(fmt.Sprintf("question_ids: expected %d ids", len(existing)))
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, q := range existing {
		known[q.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, apperror.BadRequest("question_ids: unknown or duplicate question " + id.String())
		}
		delete(known, id)
	}

	if err := u.repo.SetPositions(ctx, campaignID, ids); err != nil {
		return nil, notFound(err, "Question not found")
	}
	return u.repo.ListByCampaign(ctx, campaignID)
}
