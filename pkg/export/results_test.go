package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

func TestCampaignResults(t *testing.T) {
	score, maxScore := 8.0, 10.0
	completed := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	campaign := &domain.Campaign{ID: uuid.New(), Title: "Go Engineer", PassingScore: 70}

	data, err := CampaignResults(campaign, []domain.CandidateResult{
		{
			Candidate:       domain.Candidate{Name: "Jane Doe", Email: "jane@example.com", Status: domain.CandidateStatusCompleted},
			InterviewStatus: domain.InterviewStatusCompleted,
			Score:           &score,
			MaxScore:        &maxScore,
			CompletedAt:     &completed,
		},
		{Candidate: domain.Candidate{Name: "John Roe", Email: "john@example.com", Status: domain.CandidateStatusNew}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, "Jane Doe", rows[1][0])
	assert.Equal(t, "80.0%", rows[1][7])
	assert.Equal(t, "Yes", rows[1][8])
	assert.Equal(t, "2026-10-01 09:30", rows[1][9])
	assert.Equal(t, "John Roe", rows[2][0])
}
