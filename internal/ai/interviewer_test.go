package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/llm"
)

type stubClient struct {
	reply string
	err   error
	last  llm.Request
}

func (s *stubClient) GenerateJSON(_ context.Context, req llm.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func (s *stubClient) Model() string { return "stub" }
func (s *stubClient) Close() error  { return nil }

func TestGenerateQuestions(t *testing.T) {
	ctx := context.Background()

	t.Run("mcq is normalized", func(t *testing.T) {
		client := &stubClient{reply: `{"questions":[
			{"prompt":" What does defer do? ","options":["Runs later","Panics"],"correct_option":0,"explanation":"Deferred calls run on return."},
			{"prompt":"Extra","options":["a","b"],"correct_option":1}
		]}`}
		qs, err := NewInterviewer(client).GenerateQuestions(ctx, domain.QuestionSpec{
			Type: domain.QuestionTypeMCQ, Count: 1, Title: "Go Engineer", Description: "Backend",
		})
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "What does defer do?", qs[0].Prompt)
		assert.Equal(t, 0, *qs[0].CorrectOption)
		assert.Equal(t, 1, qs[0].Points)
		assert.Equal(t, domain.DifficultyMedium, qs[0].Difficulty)
		assert.Equal(t, "Deferred calls run on return.", qs[0].ExpectedAnswer)
		assert.Contains(t, client.last.Prompt, "Go Engineer")
		assert.Contains(t, client.last.Prompt, "1 multiple-choice")
	})

	t.Run("correct option out of range", func(t *testing.T) {
		client := &stubClient{reply: `{"questions":[{"prompt":"Q","options":["a","b"],"correct_option":4}]}`}
		_, err := NewInterviewer(client).GenerateQuestions(ctx, domain.QuestionSpec{Type: domain.QuestionTypeMCQ, Count: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "correct_option")
	})

	t.Run("coding without language fails schema", func(t *testing.T) {
		client := &stubClient{reply: `{"questions":[{"prompt":"FizzBuzz"}]}`}
		_, err := NewInterviewer(client).GenerateQuestions(ctx, domain.QuestionSpec{Type: domain.QuestionTypeCoding, Count: 1})
		var verr *llm.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("coding", func(t *testing.T) {
		client := &stubClient{reply: `{"questions":[{"prompt":"FizzBuzz","language":"Go"}]}`}
		qs, err := NewInterviewer(client).GenerateQuestions(ctx, domain.QuestionSpec{Type: domain.QuestionTypeCoding, Count: 2, Difficulty: domain.DifficultyHard})
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "go", qs[0].Language)
		assert.Equal(t, 5, qs[0].Points)
		assert.Equal(t, domain.DifficultyHard, qs[0].Difficulty)
	})

	t.Run("llm error", func(t *testing.T) {
		client := &stubClient{err: errors.New("quota")}
		_, err := NewInterviewer(client).GenerateQuestions(ctx, domain.QuestionSpec{Type: domain.QuestionTypeBehavioral, Count: 3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota")
	})

	t.Run("zero count", func(t *testing.T) {
		qs, err := NewInterviewer(&stubClient{}).GenerateQuestions(ctx, domain.QuestionSpec{Type: domain.QuestionTypeMCQ})
		require.NoError(t, err)
		assert.Empty(t, qs)
	})
}

func TestScoreAnswer(t *testing.T) {
	ctx := context.Background()
	q := domain.Question{Type: domain.QuestionTypeCoding, Prompt: "Reverse a string", Language: "go", Points: 5}

	t.Run("scored", func(t *testing.T) {
		client := &stubClient{reply: `{"score":0.8,"feedback":"Handles runes."}`}
		s, err := NewInterviewer(client).ScoreAnswer(ctx, q, "func rev(s string) string {...}")
		require.NoError(t, err)
		assert.InDelta(t, 0.8, s.Ratio, 1e-9)
		assert.Equal(t, "Handles runes.", s.Feedback)
		assert.Contains(t, client.last.Prompt, "Language: go")
	})

	t.Run("empty answer skips the model", func(t *testing.T) {
		client := &stubClient{err: errors.New("should not be called")}
		s, err := NewInterviewer(client).ScoreAnswer(ctx, q, "   ")
		require.NoError(t, err)
		assert.Zero(t, s.Ratio)
	})

	t.Run("long answer is cut on a character boundary", func(t *testing.T) {
		client := &stubClient{reply: `{"score":0.5,"feedback":"ok"}`}
		answer := "a" + strings.Repeat("é", maxAnswerChars)
		_, err := NewInterviewer(client).ScoreAnswer(ctx, q, answer)
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(client.last.Prompt))
		assert.Contains(t, client.last.Prompt, "a"+strings.Repeat("é", maxAnswerChars-1))
		assert.NotContains(t, client.last.Prompt, strings.Repeat("é", maxAnswerChars))
	})

	t.Run("out of range score rejected", func(t *testing.T) {
		client := &stubClient{reply: `{"score":3,"feedback":"x"}`}
		_, err := NewInterviewer(client).ScoreAnswer(ctx, q, "answer")
		assert.Error(t, err)
	})
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "a 1 b", format("a {{.X}} b", map[string]string{"X": "1"}))
}
