package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/metrics"
	"github.com/Gradiiai/gradii-sub007/pkg/security"
	"github.com/Gradiiai/gradii-sub007/pkg/storage"
)

const pendingReview = "pending review"

type sessionUsecase struct {
	repo          domain.InterviewRepository
	questionRepo  domain.QuestionRepository
	candidateRepo domain.CandidateRepository
	campaignRepo  domain.CampaignRepository
	userRepo      domain.UserRepository
	tx            domain.Transactor
	ai            domain.InterviewAI
	tokens        domain.InterviewTokens
	jobs          domain.JobQueue
	events        domain.EventPublisher
	store         domain.BlobStore
	uploads       UploadChecks
	policy        security.FilePolicy
	metrics       *metrics.Metrics
	frontendURL   string
	now           func() time.Time
}

type SessionDeps struct {
	Interviews        domain.InterviewRepository
	Questions         domain.QuestionRepository
	Candidates        domain.CandidateRepository
	Campaigns         domain.CampaignRepository
	Users             domain.UserRepository
	Tx                domain.Transactor
	AI                domain.InterviewAI
	Tokens            domain.InterviewTokens
	Jobs              domain.JobQueue
	Events            domain.EventPublisher
	Store             domain.BlobStore
	Uploads           UploadChecks
	MaxRecordingBytes int64
	Metrics           *metrics.Metrics
	FrontendURL       string
}

func NewSessionUsecase(d SessionDeps) domain.InterviewSessionUsecase {
	return &sessionUsecase{
		repo:          d.Interviews,
		questionRepo:  d.Questions,
		candidateRepo: d.Candidates,
		campaignRepo:  d.Campaigns,
		userRepo:      d.Users,
		tx:            d.Tx,
		ai:            d.AI,
		tokens:        d.Tokens,
		jobs:          d.Jobs,
		events:        d.Events,
		store:         d.Store,
		uploads:       d.Uploads,
		policy:        security.RecordingPolicy(d.MaxRecordingBytes),
		metrics:       d.Metrics,
		frontendURL:   d.FrontendURL,
		now:           time.Now,
	}
}

var errDeadlinePassed = apperror.New(http.StatusGone, "The interview deadline has passed", nil)

// session resolves an interview link token.
func (u *sessionUsecase) session(ctx context.Context, token string) (*domain.Interview, error) {
	id, err := u.tokens.ParseInterviewToken(token)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid or expired interview link")
	}
	interview, err := u.repo.GetForSession(ctx, id)
	if err != nil {
		return nil, notFound(err, "Interview not found")
	}
	if interview.Status == domain.InterviewStatusCancelled {
		return nil, apperror.Conflict("This interview has been cancelled")
	}
	return interview, nil
}

func (u *sessionUsecase) state(interview *domain.Interview, questions []domain.Question) *domain.SessionState {
	s := &domain.SessionState{
		InterviewID:   interview.ID,
		Status:        interview.Status,
		CampaignTitle: interview.CampaignTitle,
		Position:      interview.CurrentPosition,
		Total:         len(questions),
		DeadlineAt:    interview.DeadlineAt,
	}
	// Questions are only revealed inside the started window.
	if interview.Status != domain.InterviewStatusInProgress {
		s.Done = interview.Status != domain.InterviewStatusScheduled
		return s
	}
	if interview.CurrentPosition < len(questions) {
		q := questions[interview.CurrentPosition].ForCandidate()
		s.Question = &q
	} else {
		s.Done = true
	}
	return s
}

// record writes an analytics event; failures are only logged.
func (u *sessionUsecase) record(ctx context.Context, interviewID uuid.UUID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		warnOnErr(ctx, err, "failed to encode interview event")
		return
	}
	warnOnErr(ctx, u.repo.RecordEvent(ctx, &domain.InterviewEvent{
		InterviewID: interviewID,
		Type:        eventType,
		Payload:     raw,
	}), "failed to record interview event", zap.String("type", eventType))
}

func (u *sessionUsecase) Start(ctx context.Context, token string) (*domain.SessionState, error) {
	interview, err := u.session(ctx, token)
	if err != nil {
		return nil, err
	}

	switch interview.Status {
	case domain.InterviewStatusInProgress:
		return u.current(ctx, interview)
	case domain.InterviewStatusCompleted:
		return nil, apperror.Conflict("This interview is already completed")
	case domain.InterviewStatusExpired:
		return nil, errDeadlinePassed
	}

	now := u.now()
	if now.Before(interview.ScheduledAt.Add(-domain.EarlyStartGrace)) {
		return nil, apperror.Conflict(fmt.Sprintf("This interview opens at %s", interview.ScheduledAt.Format(time.RFC1123)))
	}
	if now.After(interview.DeadlineAt) {
		interview.Status = domain.InterviewStatusExpired
		warnOnErr(ctx, u.repo.Transition(ctx, interview, domain.InterviewStatusScheduled),
			"failed to expire interview", zap.Stringer("interview_id", interview.ID))
		return nil, errDeadlinePassed
	}

	interview.Status = domain.InterviewStatusInProgress
	interview.StartedAt = &now
	if err := u.repo.Transition(ctx, interview, domain.InterviewStatusScheduled); err != nil {
		return nil, stale(err, "This interview was changed, reload to continue")
	}
	warnOnErr(ctx, u.candidateRepo.UpdateStatus(ctx, interview.CandidateID, domain.CandidateStatusInterviewing),
		"failed to update candidate status", zap.Stringer("candidate_id", interview.CandidateID))
	u.record(ctx, interview.ID, "started", map[string]any{"at": now})
	u.events.Publish(ctx, interview.CompanyID, domain.EventInterviewStarted, map[string]any{
		"interview_id": interview.ID,
		"candidate_id": interview.CandidateID,
		"started_at":   now,
	})
	return u.current(ctx, interview)
}

func (u *sessionUsecase) current(ctx context.Context, interview *domain.Interview) (*domain.SessionState, error) {
	questions, err := u.questionRepo.ListByCampaign(ctx, interview.CampaignID)
	if err != nil {
		return nil, err
	}
	return u.state(interview, questions), nil
}

func (u *sessionUsecase) Current(ctx context.Context, token string) (*domain.SessionState, error) {
	interview, err := u.session(ctx, token)
	if err != nil {
		return nil, err
	}
	return u.current(ctx, interview)
}

func (u *sessionUsecase) SubmitAnswer(ctx context.Context, token string, req domain.SubmitAnswerRequest) (*domain.SessionState, error) {
	interview, err := u.session(ctx, token)
	if err != nil {
		return nil, err
	}
	if interview.Status != domain.InterviewStatusInProgress {
		return nil, apperror.Conflict("This interview is not in progress")
	}
	if u.now().After(interview.DeadlineAt) {
		return nil, errDeadlinePassed
	}

	questions, err := u.questionRepo.ListByCampaign(ctx, interview.CampaignID)
	if err != nil {
		return nil, err
	}
	if interview.CurrentPosition >= len(questions) {
		return nil, apperror.Conflict("All questions have already been answered")
	}
	question := questions[interview.CurrentPosition]
	if req.QuestionID != question.ID {
		return nil, apperror.Conflict("Answer does not match the current question")
	}

	answer := &domain.Answer{
		InterviewID:    interview.ID,
		QuestionID:     question.ID,
		Answer:         req.Answer,
		SelectedOption: req.SelectedOption,
	}
	if err := u.score(ctx, question, answer); err != nil {
		return nil, err
	}

	// Scoring can be slow; the answer only lands if the interview is still where we read it.
	position := interview.CurrentPosition
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.repo.Advance(ctx, interview.ID, position); err != nil {
			return err
		}
		return u.repo.SaveAnswer(ctx, answer)
	})
	if err != nil {
		return nil, stale(err, "The interview moved on before this answer was saved")
	}
	interview.CurrentPosition++
	u.record(ctx, interview.ID, "answer_submitted", map[string]any{
		"question_id": question.ID,
		"position":    interview.CurrentPosition - 1,
	})
	return u.state(interview, questions), nil
}

// score grades multiple choice answers locally and free text with the model.
// A model failure scores 0 and never blocks the candidate.
func (u *sessionUsecase) score(ctx context.Context, q domain.Question, a *domain.Answer) error {
	if q.Type == domain.QuestionTypeMCQ {
		if a.SelectedOption == nil {
			return apperror.BadRequest("selected_option: is required for multiple choice questions")
		}
		if *a.SelectedOption < 0 || *a.SelectedOption >= len(q.Options) {
			return apperror.BadRequest("selected_option: out of range")
		}
		if q.CorrectOption != nil && *a.SelectedOption == *q.CorrectOption {
			a.Score = float64(q.Points)
		}
		return nil
	}

	start := time.Now()
	result, err := u.ai.ScoreAnswer(ctx, q, a.Answer)
	u.metrics.ObserveLLM(ctx, "score_answer", time.Since(start), err)
	if err != nil {
		logger.Warn(ctx, "answer scoring failed", zap.Stringer("question_id", q.ID), zap.Error(err))
		a.Score = 0
		a.Feedback = pendingReview
		return nil
	}
	a.Score = result.Ratio * float64(q.Points)
	a.Feedback = result.Feedback
	return nil
}

func (u *sessionUsecase) Complete(ctx context.Context, token string) (*domain.InterviewResult, error) {
	interview, err := u.session(ctx, token)
	if err != nil {
		return nil, err
	}
	if interview.Status != domain.InterviewStatusInProgress {
		return nil, apperror.Conflict("This interview is not in progress")
	}

	questions, err := u.questionRepo.ListByCampaign(ctx, interview.CampaignID)
	if err != nil {
		return nil, err
	}
	answers, err := u.repo.ListAnswers(ctx, interview.ID)
	if err != nil {
		return nil, err
	}
	interview.Score, interview.MaxScore = totals(questions, answers)

	now := u.now()
	interview.Status = domain.InterviewStatusCompleted
	interview.CompletedAt = &now
	if err := u.repo.Transition(ctx, interview, domain.InterviewStatusInProgress); err != nil {
		return nil, stale(err, "An answer was saved meanwhile, complete the interview again")
	}
	warnOnErr(ctx, u.candidateRepo.UpdateStatus(ctx, interview.CandidateID, domain.CandidateStatusCompleted),
		"failed to update candidate status", zap.Stringer("candidate_id", interview.CandidateID))

	u.metrics.InterviewCompleted(ctx)
	u.record(ctx, interview.ID, "completed", map[string]any{"score": interview.Score, "max_score": interview.MaxScore})
	u.events.Publish(ctx, interview.CompanyID, domain.EventInterviewCompleted, map[string]any{
		"interview_id": interview.ID,
		"candidate_id": interview.CandidateID,
		"campaign_id":  interview.CampaignID,
		"score":        interview.Score,
		"max_score":    interview.MaxScore,
		"completed_at": now,
	})
	u.notifyRecruiter(ctx, interview)

	return &domain.InterviewResult{
		InterviewID: interview.ID,
		Status:      interview.Status,
		Answered:    len(answers),
		Total:       len(questions),
		CompletedAt: now,
	}, nil
}

// totals sums answer scores against the points of every question; unanswered count 0.
func totals(questions []domain.Question, answers []domain.Answer) (score, maxScore float64) {
	asked := make(map[uuid.UUID]bool, len(questions))
	for _, q := range questions {
		maxScore += float64(q.Points)
		asked[q.ID] = true
	}
	for _, a := range answers {
		if asked[a.QuestionID] {
			score += a.Score
		}
	}
	return score, maxScore
}

func (u *sessionUsecase) notifyRecruiter(ctx context.Context, interview *domain.Interview) {
	campaign, err := u.campaignRepo.GetByID(ctx, interview.CompanyID, interview.CampaignID)
	if err != nil {
		warnOnErr(ctx, err, "failed to load campaign for completion email")
		return
	}
	owner, err := u.userRepo.GetByID(ctx, campaign.CreatedBy)
	if err != nil {
		warnOnErr(ctx, err, "failed to load campaign owner for completion email")
		return
	}
	warnOnErr(ctx, u.jobs.EnqueueEmail(ctx, domain.EmailMessage{
		Kind:    domain.EmailInterviewDone,
		To:      owner.Email,
		Name:    owner.Name,
		Subject: interview.CandidateName + " completed their interview",
		Data: map[string]string{
			"CandidateName": interview.CandidateName,
			"CampaignTitle": campaign.Title,
			"Score":         fmt.Sprintf("%.1f", interview.Score),
			"MaxScore":      fmt.Sprintf("%.1f", interview.MaxScore),
			"ReportURL":     fmt.Sprintf("%s/interviews/%s/report", u.frontendURL, interview.ID),
		},
	}), "failed to enqueue completion email", zap.Stringer("interview_id", interview.ID))
}

func (u *sessionUsecase) UploadRecording(ctx context.Context, token string, upload domain.FileUpload) error {
	interview, err := u.session(ctx, token)
	if err != nil {
		return err
	}
	if interview.Status != domain.InterviewStatusInProgress && interview.Status != domain.InterviewStatusCompleted {
		return apperror.Conflict("Recordings can only be uploaded for a started interview")
	}

	rateKey := fmt.Sprintf("recording:%s:%s", interview.ID, upload.ClientIP)
	info, err := u.uploads.check(ctx, "recording", u.policy, rateKey, upload)
	if err != nil {
		return err
	}

	key := storage.RecordingKey(interview.CompanyID, interview.ID, info.Extension)
	if err := u.store.Put(ctx, key, info.ContentType, upload.Data); err != nil {
		return apperror.Unavailable("Could not store the recording", err)
	}

	previous, err := u.repo.SetRecordingKey(ctx, interview.ID, key)
	if err != nil {
		warnOnErr(ctx, u.store.Delete(ctx, key), "failed to clean up recording blob")
		return stale(err, "Recordings can only be uploaded for a started interview")
	}
	interview.RecordingKey = key
	if previous != "" {
		warnOnErr(ctx, u.store.Delete(ctx, previous), "failed to delete previous recording blob")
	}
	u.record(ctx, interview.ID, "recording_uploaded", map[string]any{"size": info.Size, "content_type": info.ContentType})
	return nil
}
