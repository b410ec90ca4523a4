// Package ai generates interview questions and scores free-text answers with an LLM.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/llm"
)

// maxAnswerChars bounds the candidate answer forwarded to the model.
const maxAnswerChars = 12000

type Interviewer struct {
	client llm.Client
}

var _ domain.InterviewAI = (*Interviewer)(nil)

func NewInterviewer(client llm.Client) *Interviewer {
	return &Interviewer{client: client}
}

type generatedQuestion struct {
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	CorrectOption  *int     `json:"correct_option"`
	ExpectedAnswer string   `json:"expected_answer"`
	Explanation    string   `json:"explanation"`
	Language       string   `json:"language"`
	Points         int      `json:"points"`
}

func (iv *Interviewer) GenerateQuestions(ctx context.Context, spec domain.QuestionSpec) ([]domain.Question, error) {
	if spec.Count <= 0 {
		return nil, nil
	}
	system, err := prompt("generate_system")
	if err != nil {
		return nil, err
	}
	tmpl, err := prompt("generate_" + string(spec.Type))
	if err != nil {
		return nil, err
	}
	difficulty := spec.Difficulty
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	raw, err := iv.client.GenerateJSON(ctx, llm.Request{
		System:      system,
		Temperature: 0.4,
		Prompt: format(tmpl, map[string]string{
			"Count":       strconv.Itoa(spec.Count),
			"Difficulty":  string(difficulty),
			"Title":       spec.Title,
			"Description": strings.TrimSpace(spec.Description),
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("generating %s questions: %w", spec.Type, err)
	}
	if err := llm.ValidateQuestions(string(spec.Type), raw); err != nil {
		return nil, err
	}

	var doc struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding generated questions: %w", err)
	}
	if len(doc.Questions) > spec.Count {
		doc.Questions = doc.Questions[:spec.Count]
	}

	out := make([]domain.Question, 0, len(doc.Questions))
	for i, g := range doc.Questions {
		q, err := normalize(spec.Type, difficulty, g)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func normalize(t domain.QuestionType, d domain.Difficulty, g generatedQuestion) (domain.Question, error) {
	q := domain.Question{
		Type:           t,
		Prompt:         strings.TrimSpace(g.Prompt),
		ExpectedAnswer: strings.TrimSpace(g.ExpectedAnswer),
		Difficulty:     d,
		Points:         t.DefaultPoints(),
	}
	if q.Prompt == "" {
		return q, errors.New("empty prompt")
	}

	switch t {
	case domain.QuestionTypeMCQ:
		for _, o := range g.Options {
			q.Options = append(q.Options, strings.TrimSpace(o))
		}
		if g.CorrectOption == nil || *g.CorrectOption < 0 || *g.CorrectOption >= len(q.Options) {
			return q, errors.New("correct_option out of range")
		}
		correct := *g.CorrectOption
		q.CorrectOption = &correct
		if q.ExpectedAnswer == "" {
			q.ExpectedAnswer = strings.TrimSpace(g.Explanation)
		}
	case domain.QuestionTypeCoding:
		q.Language = strings.ToLower(strings.TrimSpace(g.Language))
		if q.Language == "" {
			return q, errors.New("missing language")
		}
	}
	return q, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func (iv *Interviewer) ScoreAnswer(ctx context.Context, question domain.Question, answer string) (*domain.AnswerScore, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return &domain.AnswerScore{Ratio: 0, Feedback: "No answer given."}, nil
	}
	answer = truncateRunes(answer, maxAnswerChars)

	system, err := prompt("score_system")
	if err != nil {
		return nil, err
	}
	tmpl, err := prompt("score_answer")
	if err != nil {
		return nil, err
	}
	languageLine := ""
	if question.Language != "" {
		languageLine = "Language: " + question.Language + "\n"
	}
	expected := question.ExpectedAnswer
	if expected == "" {
		expected = "(none provided, use your own judgement)"
	}

	raw, err := iv.client.GenerateJSON(ctx, llm.Request{
		System:      system,
		Temperature: 0,
		Prompt: format(tmpl, map[string]string{
			"Type":         string(question.Type),
			"LanguageLine": languageLine,
			"Prompt":       question.Prompt,
			"Expected":     expected,
			"Answer":       answer,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("scoring answer: %w", err)
	}
	if err := llm.ValidateScore(raw); err != nil {
		return nil, err
	}

	var res struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decoding score: %w", err)
	}
	return &domain.AnswerScore{Ratio: min(max(res.Score, 0), 1), Feedback: strings.TrimSpace(res.Feedback)}, nil
}
