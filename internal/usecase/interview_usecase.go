package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

type interviewUsecase struct {
	repo          domain.InterviewRepository
	campaignRepo  domain.CampaignRepository
	candidateRepo domain.CandidateRepository
	questionRepo  domain.QuestionRepository
	userRepo      domain.UserRepository
	companyRepo   domain.CompanyRepository
	quota         domain.QuotaChecker
	tx            domain.Transactor
	tokens        domain.InterviewTokens
	jobs          domain.JobQueue
	events        domain.EventPublisher
	store         domain.BlobStore
	frontendURL   string
	urlTTL        time.Duration
	now           func() time.Time
}

type InterviewDeps struct {
	Interviews   domain.InterviewRepository
	Campaigns    domain.CampaignRepository
	Candidates   domain.CandidateRepository
	Questions    domain.QuestionRepository
	Users        domain.UserRepository
	Companies    domain.CompanyRepository
	Quota        domain.QuotaChecker
	Tx           domain.Transactor
	Tokens       domain.InterviewTokens
	Jobs         domain.JobQueue
	Events       domain.EventPublisher
	Store        domain.BlobStore
	FrontendURL  string
	SignedURLTTL time.Duration
}

func NewInterviewUsecase(d InterviewDeps) domain.InterviewUsecase {
	return &interviewUsecase{
		repo:          d.Interviews,
		campaignRepo:  d.Campaigns,
		candidateRepo: d.Candidates,
		questionRepo:  d.Questions,
		userRepo:      d.Users,
		companyRepo:   d.Companies,
		quota:         d.Quota,
		tx:            d.Tx,
		tokens:        d.Tokens,
		jobs:          d.Jobs,
		events:        d.Events,
		store:         d.Store,
		frontendURL:   d.FrontendURL,
		urlTTL:        d.SignedURLTTL,
		now:           time.Now,
	}
}

// window validates a schedule and fills in the default deadline.
func (u *interviewUsecase) window(scheduledAt time.Time, deadline *time.Time) (time.Time, error) {
	if !scheduledAt.After(u.now()) {
		return time.Time{}, apperror.BadRequest("scheduled_at: must be in the future")
	}
	if deadline == nil {
		return scheduledAt.Add(domain.DefaultInterviewWindow), nil
	}
	if !deadline.After(scheduledAt) {
		return time.Time{}, apperror.BadRequest("deadline_at: must be after scheduled_at")
	}
	return *deadline, nil
}

func (u *interviewUsecase) Schedule(ctx context.Context, req domain.ScheduleInterviewRequest) (*domain.ScheduledInterview, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	campaign, err := u.campaignRepo.GetByID(ctx, p.CompanyID, req.CampaignID)
	if err != nil {
		return nil, notFound(err, "Campaign not found")
	}
	if campaign.Status != domain.CampaignStatusActive {
		return nil, apperror.Conflict("Interviews can only be scheduled for active campaigns")
	}
	n, err := u.questionRepo.CountByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperror.Conflict("Campaign has no questions yet")
	}

	candidate, err := u.candidateRepo.GetByID(ctx, p.CompanyID, req.CandidateID)
	if err != nil {
		return nil, notFound(err, "Candidate not found")
	}
	if req.InterviewerID != nil {
		interviewer, err := u.userRepo.GetByID(ctx, *req.InterviewerID)
		if err != nil || interviewer.CompanyID == nil || *interviewer.CompanyID != p.CompanyID {
			return nil, apperror.BadRequest("interviewer_id: not a member of this company")
		}
	}

	deadline, err := u.window(req.ScheduledAt, req.DeadlineAt)
	if err != nil {
		return nil, err
	}

	interview := &domain.Interview{
		CompanyID:     p.CompanyID,
		CampaignID:    campaign.ID,
		CandidateID:   candidate.ID,
		InterviewerID: req.InterviewerID,
		Status:        domain.InterviewStatusScheduled,
		ScheduledAt:   req.ScheduledAt.UTC(),
		DeadlineAt:    deadline.UTC(),
	}
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.quota.ConsumeInterview(ctx, p.CompanyID); err != nil {
			return err
		}
		if err := u.repo.Create(ctx, interview); err != nil {
			return err
		}
		return u.candidateRepo.UpdateStatus(ctx, candidate.ID, domain.CandidateStatusInvited)
	})
	if err != nil {
		return nil, err
	}
	interview.CandidateName = candidate.Name
	interview.CandidateEmail = candidate.Email
	interview.CampaignTitle = campaign.Title

	link, err := u.invite(ctx, interview)
	if err != nil {
		return nil, err
	}
	u.events.Publish(ctx, p.CompanyID, domain.EventInterviewScheduled, map[string]any{
		"interview_id": interview.ID,
		"campaign_id":  campaign.ID,
		"candidate_id": candidate.ID,
		"scheduled_at": interview.ScheduledAt,
		"deadline_at":  interview.DeadlineAt,
	})
	return &domain.ScheduledInterview{Interview: interview, Link: link}, nil
}

// invite issues the candidate link and queues the invitation email.
func (u *interviewUsecase) invite(ctx context.Context, interview *domain.Interview) (string, error) {
	token, err := u.tokens.IssueInterviewToken(interview.ID, interview.DeadlineAt)
	if err != nil {
		return "", apperror.Internal(err)
	}
	link := u.frontendURL + "/interview/" + token

	companyName := ""
	if company, err := u.companyRepo.GetByID(ctx, interview.CompanyID); err == nil {
		companyName = company.Name
	}
	warnOnErr(ctx, u.jobs.EnqueueEmail(ctx, domain.EmailMessage{
		Kind:    domain.EmailInterviewInvite,
		To:      interview.CandidateEmail,
		Name:    interview.CandidateName,
		Subject: "Your interview for " + interview.CampaignTitle,
		Data: map[string]string{
			"CompanyName":   companyName,
			"CampaignTitle": interview.CampaignTitle,
			"ScheduledAt":   interview.ScheduledAt.Format(time.RFC1123),
			"DeadlineAt":    interview.DeadlineAt.Format(time.RFC1123),
			"Link":          link,
		},
	}), "failed to enqueue interview invite", zap.Stringer("interview_id", interview.ID))
	return link, nil
}

func (u *interviewUsecase) Reschedule(ctx context.Context, id uuid.UUID, req domain.RescheduleInterviewRequest) (*domain.ScheduledInterview, error) {
	interview, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if interview.Status != domain.InterviewStatusScheduled {
		return nil, apperror.Conflict("Only scheduled interviews can be rescheduled")
	}
	deadline, err := u.window(req.ScheduledAt, req.DeadlineAt)
	if err != nil {
		return nil, err
	}
	interview.ScheduledAt = req.ScheduledAt.UTC()
	interview.DeadlineAt = deadline.UTC()
	if err := u.repo.Reschedule(ctx, interview); err != nil {
		return nil, stale(err, "Only scheduled interviews can be rescheduled")
	}

	link, err := u.invite(ctx, interview)
	if err != nil {
		return nil, err
	}
	return &domain.ScheduledInterview{Interview: interview, Link: link}, nil
}

func (u *interviewUsecase) Cancel(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	interview, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if interview.Status != domain.InterviewStatusScheduled {
		return nil, apperror.Conflict("Only scheduled interviews can be cancelled")
	}
	interview.Status = domain.InterviewStatusCancelled
	if err := u.repo.Transition(ctx, interview, domain.InterviewStatusScheduled); err != nil {
		return nil, stale(err, "Only scheduled interviews can be cancelled")
	}
	u.events.Publish(ctx, interview.CompanyID, domain.EventInterviewCancelled, map[string]any{
		"interview_id": interview.ID,
		"candidate_id": interview.CandidateID,
	})
	return interview, nil
}

func (u *interviewUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	interview, err := u.repo.GetByID(ctx, p.CompanyID, id)
	if err != nil {
		return nil, notFound(err, "Interview not found")
	}
	return interview, nil
}

func (u *interviewUsecase) List(ctx context.Context, filter domain.InterviewFilter) (*domain.PaginatedResult[domain.Interview], error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	filter.Page = domain.NewPage(filter.Page.Page, filter.Page.PageSize)
	interviews, total, err := u.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(interviews, total, filter.Page), nil
}

// Report pairs every campaign question with the candidate's answer, if any.
func (u *interviewUsecase) Report(ctx context.Context, id uuid.UUID) (*domain.InterviewReport, error) {
	interview, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	campaign, err := u.campaignRepo.GetByID(ctx, interview.CompanyID, interview.CampaignID)
	if err != nil {
		return nil, notFound(err, "Campaign not found")
	}
	questions, err := u.questionRepo.ListByCampaign(ctx, interview.CampaignID)
	if err != nil {
		return nil, err
	}
	answers, err := u.repo.ListAnswers(ctx, interview.ID)
	if err != nil {
		return nil, err
	}
	return buildReport(interview, campaign, questions, answers), nil
}

func buildReport(interview *domain.Interview, campaign *domain.Campaign, questions []domain.Question, answers []domain.Answer) *domain.InterviewReport {
	byQuestion := make(map[uuid.UUID]*domain.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	report := &domain.InterviewReport{
		Interview: interview,
		Items:     make([]domain.ReportItem, 0, len(questions)),
		Total:     len(questions),
	}
	for _, q := range questions {
		a := byQuestion[q.ID]
		if a != nil {
			report.Answered++
		}
		report.Items = append(report.Items, domain.ReportItem{Question: q, Answer: a})
	}
	if interview.MaxScore > 0 {
		report.Percentage = interview.Score / interview.MaxScore * 100
	}
	report.Passed = interview.Status == domain.InterviewStatusCompleted && report.Percentage >= campaign.PassingScore
	return report
}

func (u *interviewUsecase) RecordingURL(ctx context.Context, id uuid.UUID) (string, error) {
	interview, err := u.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if interview.RecordingKey == "" {
		return "", apperror.NotFound("Interview has no recording")
	}
	url, err := u.store.SignedURL(ctx, interview.RecordingKey, u.urlTTL)
	if err != nil {
		return "", apperror.Unavailable("Could not sign the file URL", err)
	}
	return url, nil
}
