package usecase_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/security/antivirus"
	"github.com/Gradiiai/gradii-sub007/pkg/validation"
)

type stubScanner struct {
	result antivirus.Result
	err    error
}

func (s stubScanner) Scan(context.Context, string, []byte) (antivirus.Result, error) {
	return s.result, s.err
}
func (stubScanner) Name() string { return "stub" }

type stubUploadGuard struct{ allow bool }

func (g stubUploadGuard) Allow(context.Context, string) (bool, time.Duration, error) {
	return g.allow, 30 * time.Second, nil
}

func bindingValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	validation.RegisterValidators(v)
	return v
}

type candidateFixture struct {
	repo      *MockCandidateRepo
	campaigns *MockCampaignRepo
	store     *MockBlobStore
	events    *eventRecorder
	audit     *auditRecorder
	uc        domain.CandidateUsecase
}

func newCandidateFixture(uploads usecase.UploadChecks) *candidateFixture {
	f := &candidateFixture{
		repo:      new(MockCandidateRepo),
		campaigns: new(MockCampaignRepo),
		store:     new(MockBlobStore),
		events:    &eventRecorder{},
		audit:     &auditRecorder{},
	}
	if uploads.Audit == nil {
		uploads.Audit = f.audit
	}
	f.uc = usecase.NewCandidateUsecase(usecase.CandidateDeps{
		Candidates:     f.repo,
		Campaigns:      f.campaigns,
		Store:          f.store,
		Events:         f.events,
		Validate:       bindingValidator(),
		Uploads:        uploads,
		MaxResumeBytes: 1 << 20,
		SignedURLTTL:   15 * time.Minute,
	})
	return f
}

func TestCandidateCreate(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)

	t.Run("normalises email and publishes", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{})
		f.repo.On("Create", ctx, mock.MatchedBy(func(c *domain.Candidate) bool {
			return c.Email == "jane@acme.test" && c.Status == domain.CandidateStatusNew && c.CompanyID == companyID
		})).Return(nil)

		_, err := f.uc.Create(ctx, domain.CandidateInput{Name: "Jane Doe", Email: " Jane@Acme.TEST "})
		require.NoError(t, err)
		assert.Equal(t, []domain.WebhookEvent{domain.EventCandidateCreated}, f.events.names())
	})

	t.Run("campaign from another company", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{})
		campaignID := uuid.New()
		f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(nil, domain.ErrNotFound)

		_, err := f.uc.Create(ctx, domain.CandidateInput{Name: "Jane Doe", Email: "jane@acme.test", CampaignID: &campaignID})
		assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCandidateBulkCreate(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	campaignID := uuid.New()

	f := newCandidateFixture(usecase.UploadChecks{})
	f.campaigns.On("GetByID", ctx, companyID, campaignID).Return(&domain.Campaign{ID: campaignID}, nil)
	f.repo.On("Create", ctx, mock.MatchedBy(func(c *domain.Candidate) bool { return c.Email == "taken@acme.test" })).
		Return(apperror.Conflict("Candidate with this email already exists"))
	f.repo.On("Create", ctx, mock.Anything).Return(nil)

	res, err := f.uc.BulkCreate(ctx, domain.BulkCandidateRequest{
		CampaignID: &campaignID,
		Candidates: []domain.CandidateInput{
			{Name: "Ann Lee", Email: "ann@acme.test"},
			{Name: "A", Email: "not-an-email"},
			{Name: "Ann Again", Email: "ANN@acme.test"},
			{Name: "Bo Chen", Email: "taken@acme.test"},
			{Name: "Cy Diaz", Email: "cy@acme.test"},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Created, 2)
	assert.Equal(t, &campaignID, res.Created[0].CampaignID)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "email")
	assert.Equal(t, domain.BulkRowError{Row: 3, Email: "ANN@acme.test", Message: "Duplicate email in upload"}, res.Errors[1])
	assert.Equal(t, 4, res.Errors[2].Row)
	assert.Equal(t, "Candidate with this email already exists", res.Errors[2].Message)
}

func TestCandidateBulkCreateAbortsOnServerError(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)

	f := newCandidateFixture(usecase.UploadChecks{})
	f.repo.On("Create", ctx, mock.Anything).Return(assert.AnError)

	_, err := f.uc.BulkCreate(ctx, domain.BulkCandidateRequest{
		Candidates: []domain.CandidateInput{{Name: "Ann Lee", Email: "ann@acme.test"}},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUploadResume(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	id := uuid.New()
	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

	candidate := func() *domain.Candidate {
		return &domain.Candidate{ID: id, CompanyID: companyID, ResumeKey: "resumes/old.pdf"}
	}

	t.Run("stores and replaces the previous blob", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{Guard: stubUploadGuard{allow: true}})
		f.repo.On("GetByID", ctx, companyID, id).Return(candidate(), nil)
		f.store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "resumes/"+companyID.String()+"/"+id.String()+"/") && strings.HasSuffix(key, ".pdf")
		}), "application/pdf", pdf).Return(nil)
		f.repo.On("Update", ctx, mock.Anything).Return(nil)
		f.store.On("Delete", ctx, "resumes/old.pdf").Return(nil)

		updated, err := f.uc.UploadResume(ctx, id, domain.FileUpload{Filename: "cv.pdf", Data: pdf, ClientIP: "198.51.100.4"})
		require.NoError(t, err)
		assert.NotEqual(t, "resumes/old.pdf", updated.ResumeKey)
		f.store.AssertExpectations(t)
	})

	t.Run("wrong type is rejected and audited", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{})
		f.repo.On("GetByID", ctx, companyID, id).Return(candidate(), nil)

		_, err := f.uc.UploadResume(ctx, id, domain.FileUpload{Filename: "cv.exe", Data: []byte("MZ\x90\x00"), ClientIP: "198.51.100.4"})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
		assert.Equal(t, []domain.AuditEventType{domain.AuditUploadRejected}, f.audit.types())
		f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("infected file", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{
			Scanner: stubScanner{result: antivirus.Result{Infected: true, ThreatName: "Eicar-Test-Signature"}},
		})
		f.repo.On("GetByID", ctx, companyID, id).Return(candidate(), nil)

		_, err := f.uc.UploadResume(ctx, id, domain.FileUpload{Filename: "cv.pdf", Data: pdf})
		assert.EqualError(t, err, "File rejected by malware scan")
	})

	t.Run("scanner down", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{Scanner: stubScanner{err: assert.AnError}})
		f.repo.On("GetByID", ctx, companyID, id).Return(candidate(), nil)

		_, err := f.uc.UploadResume(ctx, id, domain.FileUpload{Filename: "cv.pdf", Data: pdf})
		assert.Equal(t, http.StatusServiceUnavailable, apperror.CodeOf(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{Guard: stubUploadGuard{allow: false}})
		f.repo.On("GetByID", ctx, companyID, id).Return(candidate(), nil)

		_, err := f.uc.UploadResume(ctx, id, domain.FileUpload{Filename: "cv.pdf", Data: pdf})
		assert.Equal(t, http.StatusTooManyRequests, apperror.CodeOf(err))
		assert.EqualError(t, err, "Too many uploads, retry in 30 seconds")
	})

	t.Run("failed update removes the new blob", func(t *testing.T) {
		f := newCandidateFixture(usecase.UploadChecks{})
		f.repo.On("GetByID", ctx, companyID, id).Return(candidate(), nil)
		f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.repo.On("Update", ctx, mock.Anything).Return(assert.AnError)
		f.store.On("Delete", ctx, mock.MatchedBy(func(key string) bool { return key != "resumes/old.pdf" })).Return(nil)

		_, err := f.uc.UploadResume(ctx, id, domain.FileUpload{Filename: "cv.pdf", Data: pdf})
		assert.Error(t, err)
		f.store.AssertNumberOfCalls(t, "Delete", 1)
	})
}

func TestResumeURL(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleRecruiter)
	id := uuid.New()

	f := newCandidateFixture(usecase.UploadChecks{})
	f.repo.On("GetByID", ctx, companyID, id).Return(&domain.Candidate{ID: id, CompanyID: companyID}, nil)

	_, err := f.uc.ResumeURL(ctx, id)
	assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
}
