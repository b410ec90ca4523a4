package usecase_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/llm"
)

type questionFixture struct {
	repo       *MockQuestionRepo
	campaigns  *MockCampaignRepo
	interviews *MockInterviewRepo
	ai         *MockAI
	jobs       *MockJobs
	events     *eventRecorder
	uc         domain.QuestionUsecase
}

func newQuestionFixture() *questionFixture {
	return newQuestionFixtureWithInterviews(0)
}

// newQuestionFixtureWithInterviews reports live interviews for every campaign.
func newQuestionFixtureWithInterviews(live int64) *questionFixture {
	f := &questionFixture{
		repo:       new(MockQuestionRepo),
		campaigns:  new(MockCampaignRepo),
		interviews: new(MockInterviewRepo),
		ai:         new(MockAI),
		jobs:       new(MockJobs),
		events:     &eventRecorder{},
	}
	f.interviews.On("CountLiveByCampaign", mock.Anything, mock.Anything).Return(live, nil).Maybe()
	f.uc = usecase.NewQuestionUsecase(f.repo, f.campaigns, f.interviews, f.ai, f.jobs, f.events, nil)
	return f
}

func generated(t domain.QuestionType, n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{ID: uuid.New(), Type: t, Prompt: "Question", Points: t.DefaultPoints()}
	}
	return out
}

func specOf(t domain.QuestionType, n int) any {
	return mock.MatchedBy(func(s domain.QuestionSpec) bool { return s.Type == t && s.Count == n })
}

func TestGenerateQuestions(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	campaignID := uuid.New()

	campaign := func(it domain.InterviewType, count int) *domain.Campaign {
		return &domain.Campaign{
			ID: campaignID, CompanyID: companyID, Title: "Go Developer", Status: domain.CampaignStatusActive,
			InterviewType: it, QuestionCount: count, Difficulty: domain.DifficultyHard,
		}
	}

	t.Run("combo splits the count", func(t *testing.T) {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(campaign(domain.InterviewTypeCombo, 10), nil)
		f.ai.On("GenerateQuestions", mock.Anything, specOf(domain.QuestionTypeMCQ, 4)).Return(generated(domain.QuestionTypeMCQ, 4), nil)
		f.ai.On("GenerateQuestions", mock.Anything, specOf(domain.QuestionTypeCoding, 3)).Return(generated(domain.QuestionTypeCoding, 3), nil)
		f.ai.On("GenerateQuestions", mock.Anything, specOf(domain.QuestionTypeBehavioral, 3)).Return(generated(domain.QuestionTypeBehavioral, 3), nil)
		f.repo.On("ReplaceForCampaign", ctx, campaignID, mock.Anything).Return(nil)

		questions, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
		require.NoError(t, err)
		require.Len(t, questions, 10)
		for i, q := range questions {
			assert.Equal(t, i, q.Position)
			assert.Equal(t, campaignID, q.CampaignID)
		}
		assert.Equal(t, domain.QuestionTypeMCQ, questions[0].Type)
		assert.Equal(t, domain.QuestionTypeBehavioral, questions[9].Type)
		assert.Equal(t, []domain.WebhookEvent{domain.EventQuestionsGenerated}, f.events.names())
		f.ai.AssertExpectations(t)
	})

	t.Run("small combo drops empty batches", func(t *testing.T) {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(campaign(domain.InterviewTypeCombo, 2), nil)
		f.ai.On("GenerateQuestions", mock.Anything, specOf(domain.QuestionTypeMCQ, 1)).Return(generated(domain.QuestionTypeMCQ, 1), nil)
		f.ai.On("GenerateQuestions", mock.Anything, specOf(domain.QuestionTypeCoding, 1)).Return(generated(domain.QuestionTypeCoding, 1), nil)
		f.repo.On("ReplaceForCampaign", ctx, campaignID, mock.Anything).Return(nil)

		questions, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
		require.NoError(t, err)
		assert.Len(t, questions, 2)
		f.ai.AssertNumberOfCalls(t, "GenerateQuestions", 2)
	})

	t.Run("request overrides campaign settings", func(t *testing.T) {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(campaign(domain.InterviewTypeCombo, 10), nil)
		f.ai.On("GenerateQuestions", mock.Anything, mock.MatchedBy(func(s domain.QuestionSpec) bool {
			return s.Type == domain.QuestionTypeCoding && s.Count == 2 && s.Difficulty == domain.DifficultyEasy && s.Title == "Go Developer"
		})).Return(generated(domain.QuestionTypeCoding, 2), nil)
		f.repo.On("ReplaceForCampaign", ctx, campaignID, mock.Anything).Return(nil)

		_, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{
			Type: domain.InterviewTypeCoding, Count: 2, Difficulty: domain.DifficultyEasy,
		})
		require.NoError(t, err)
	})

	t.Run("malformed llm output", func(t *testing.T) {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(campaign(domain.InterviewTypeMCQ, 5), nil)
		f.ai.On("GenerateQuestions", mock.Anything, mock.Anything).
			Return(nil, &llm.ValidationError{Schema: "mcq", Issues: []string{"options: too few"}})

		_, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
		assert.Equal(t, http.StatusBadGateway, apperror.CodeOf(err))
		assert.Contains(t, err.Error(), "unexpected format")
		f.repo.AssertNotCalled(t, "ReplaceForCampaign", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty llm output", func(t *testing.T) {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(campaign(domain.InterviewTypeMCQ, 5), nil)
		f.ai.On("GenerateQuestions", mock.Anything, mock.Anything).Return([]domain.Question{}, nil)

		_, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
		assert.Equal(t, http.StatusBadGateway, apperror.CodeOf(err))
	})

	t.Run("async is queued", func(t *testing.T) {
		f := newQuestionFixture()
		req := domain.GenerateQuestionsRequest{Async: true}
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(campaign(domain.InterviewTypeMCQ, 5), nil)
		f.jobs.On("EnqueueQuestionGeneration", ctx, companyID, campaignID, req).Return(nil)

		questions, err := f.uc.Generate(ctx, campaignID, req)
		require.NoError(t, err)
		assert.Nil(t, questions)
		f.ai.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
	})

	t.Run("closed campaign", func(t *testing.T) {
		f := newQuestionFixture()
		c := campaign(domain.InterviewTypeMCQ, 5)
		c.Status = domain.CampaignStatusClosed
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(c, nil)

		_, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
		assert.Equal(t, http.StatusConflict, apperror.CodeOf(err))
	})
}

func TestCreateQuestion(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	campaignID := uuid.New()
	one, five := 1, 5

	tests := []struct {
		name  string
		input domain.QuestionInput
		ok    bool
	}{
		{"valid mcq", domain.QuestionInput{Type: domain.QuestionTypeMCQ, Prompt: "Pick one", Options: []string{"a", "b"}, CorrectOption: &one}, true},
		{"mcq with one option", domain.QuestionInput{Type: domain.QuestionTypeMCQ, Prompt: "Pick one", Options: []string{"a"}, CorrectOption: &one}, false},
		{"mcq answer out of range", domain.QuestionInput{Type: domain.QuestionTypeMCQ, Prompt: "Pick one", Options: []string{"a", "b"}, CorrectOption: &five}, false},
		{"mcq without answer", domain.QuestionInput{Type: domain.QuestionTypeMCQ, Prompt: "Pick one", Options: []string{"a", "b"}}, false},
		{"coding needs language", domain.QuestionInput{Type: domain.QuestionTypeCoding, Prompt: "Reverse a list"}, false},
		{"behavioral", domain.QuestionInput{Type: domain.QuestionTypeBehavioral, Prompt: "Tell us about a conflict"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuestionFixture()
			f.campaigns.On("GetByID", ctx, companyID, campaignID).
				Return(&domain.Campaign{ID: campaignID, CompanyID: companyID, Difficulty: domain.DifficultyMedium}, nil)
			f.repo.On("Create", ctx, mock.Anything).Return(nil)

			q, err := f.uc.Create(ctx, campaignID, tt.input)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.DifficultyMedium, q.Difficulty)
			assert.Equal(t, tt.input.Type.DefaultPoints(), q.Points)
		})
	}
}

func TestReorderQuestions(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	campaignID := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	existing := []domain.Question{{ID: a}, {ID: b}, {ID: c}}

	newFixture := func() *questionFixture {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(&domain.Campaign{ID: campaignID, CompanyID: companyID}, nil)
		f.repo.On("ListByCampaign", ctx, campaignID).Return(existing, nil)
		return f
	}

	t.Run("exact set", func(t *testing.T) {
		f := newFixture()
		f.repo.On("SetPositions", ctx, campaignID, []uuid.UUID{c, a, b}).Return(nil)
		_, err := f.uc.Reorder(ctx, campaignID, []uuid.UUID{c, a, b})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("missing id", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Reorder(ctx, campaignID, []uuid.UUID{c, a})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})

	t.Run("duplicate id", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Reorder(ctx, campaignID, []uuid.UUID{a, a, b})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
		f.repo.AssertNotCalled(t, "SetPositions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture()
		stranger := uuid.New()
		_, err := f.uc.Reorder(ctx, campaignID, []uuid.UUID{a, b, stranger})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
		assert.Contains(t, err.Error(), stranger.String())
		f.repo.AssertNotCalled(t, "SetPositions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns the stored order", func(t *testing.T) {
		f := newQuestionFixture()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(&domain.Campaign{ID: campaignID, CompanyID: companyID}, nil)
		f.repo.On("ListByCampaign", ctx, campaignID).Return(existing, nil).Once()
		f.repo.On("SetPositions", ctx, campaignID, []uuid.UUID{b, c, a}).Return(nil)
		f.repo.On("ListByCampaign", ctx, campaignID).Return([]domain.Question{
			{ID: b, Position: 0}, {ID: c, Position: 1}, {ID: a, Position: 2},
		}, nil).Once()

		reordered, err := f.uc.Reorder(ctx, campaignID, []uuid.UUID{b, c, a})
		require.NoError(t, err)
		for i, q := range reordered {
			assert.Equal(t, i, q.Position)
		}
		assert.Equal(t, b, reordered[0].ID)
	})
}

func TestQuestionsFrozenOnceInterviewsExist(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	campaignID := uuid.New()
	active := &domain.Campaign{
		ID: campaignID, CompanyID: companyID, Status: domain.CampaignStatusActive,
		InterviewType: domain.InterviewTypeMCQ, QuestionCount: 3,
	}
	one := 1
	mcq := domain.QuestionInput{Type: domain.QuestionTypeMCQ, Prompt: "Pick one", Options: []string{"a", "b"}, CorrectOption: &one}

	calls := map[string]func(uc domain.QuestionUsecase) error{
		"generate": func(uc domain.QuestionUsecase) error {
			_, err := uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
			return err
		},
		"generate async": func(uc domain.QuestionUsecase) error {
			_, err := uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{Async: true})
			return err
		},
		"create": func(uc domain.QuestionUsecase) error {
			_, err := uc.Create(ctx, campaignID, mcq)
			return err
		},
		"update": func(uc domain.QuestionUsecase) error {
			_, err := uc.Update(ctx, campaignID, uuid.New(), mcq)
			return err
		},
		"delete": func(uc domain.QuestionUsecase) error {
			return uc.Delete(ctx, campaignID, uuid.New())
		},
		"reorder": func(uc domain.QuestionUsecase) error {
			_, err := uc.Reorder(ctx, campaignID, []uuid.UUID{uuid.New()})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			f := newQuestionFixtureWithInterviews(2)
			f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(active, nil)

			err := call(f.uc)
			assert.Equal(t, http.StatusConflict, apperror.CodeOf(err))
			f.ai.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
			f.jobs.AssertNotCalled(t, "EnqueueQuestionGeneration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "ReplaceForCampaign", mock.Anything, mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "SetPositions", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("scheduled while the model was running", func(t *testing.T) {
		f := newQuestionFixture()
		f.interviews.ExpectedCalls = nil
		f.interviews.On("CountLiveByCampaign", ctx, campaignID).Return(int64(0), nil).Once()
		f.interviews.On("CountLiveByCampaign", ctx, campaignID).Return(int64(1), nil).Once()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(active, nil)
		f.ai.On("GenerateQuestions", mock.Anything, mock.Anything).Return(generated(domain.QuestionTypeMCQ, 3), nil)

		_, err := f.uc.Generate(ctx, campaignID, domain.GenerateQuestionsRequest{})
		assert.Equal(t, http.StatusConflict, apperror.CodeOf(err))
		f.repo.AssertNotCalled(t, "ReplaceForCampaign", mock.Anything, mock.Anything, mock.Anything)
	})
}
