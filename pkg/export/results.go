// Package export renders campaign results as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

const resultsSheet = "Results"

var resultHeaders = []string{"Name", "Email", "Phone", "Candidate Status", "Interview Status", "Score", "Max Score", "Percentage", "Passed", "Completed At"}

// CampaignResults writes one row per candidate. Percentage and Passed are
// empty for candidates without a completed interview.
func CampaignResults(campaign *domain.Campaign, results []domain.CandidateResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	passStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for col, header := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(resultsSheet, cell, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(resultHeaders), 1)
	_ = f.SetCellStyle(resultsSheet, "A1", lastHeader, headerStyle)
	_ = f.SetColWidth(resultsSheet, "A", "B", 28)
	_ = f.SetColWidth(resultsSheet, "C", "J", 16)

	for i, res := range results {
		row := i + 2
		values := []any{res.Name, res.Email, res.Phone, string(res.Status), string(res.InterviewStatus)}

		passed := false
		if res.Score != nil && res.MaxScore != nil && res.InterviewStatus == domain.InterviewStatusCompleted {
			pct := 0.0
			if *res.MaxScore > 0 {
				pct = *res.Score / *res.MaxScore * 100
			}
			passed = pct >= campaign.PassingScore
			values = append(values, *res.Score, *res.MaxScore, fmt.Sprintf("%.1f%%", pct), yesNo(passed))
		} else {
			values = append(values, "", "", "", "")
		}
		if res.CompletedAt != nil {
			values = append(values, res.CompletedAt.UTC().Format("2006-01-02 15:04"))
		} else {
			values = append(values, "")
		}

		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if passed {
			last, _ := excelize.CoordinatesToCellName(len(resultHeaders), row)
			_ = f.SetCellStyle(resultsSheet, cell, last, passStyle)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
