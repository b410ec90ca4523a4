package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("  {\"a\":1} "))
}

func TestValidateQuestions(t *testing.T) {
	t.Run("valid mcq", func(t *testing.T) {
		doc := `{"questions":[{"prompt":"2+2?","options":["3","4"],"correct_option":1}]}`
		assert.NoError(t, ValidateQuestions("mcq", doc))
	})

	t.Run("mcq with one option", func(t *testing.T) {
		doc := `{"questions":[{"prompt":"2+2?","options":["4"],"correct_option":0}]}`
		err := ValidateQuestions("mcq", doc)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "mcq", verr.Schema)
		assert.NotEmpty(t, verr.Issues)
	})

	t.Run("coding requires language", func(t *testing.T) {
		err := ValidateQuestions("coding", `{"questions":[{"prompt":"Reverse a list"}]}`)
		assert.Error(t, err)
	})

	t.Run("behavioral", func(t *testing.T) {
		assert.NoError(t, ValidateQuestions("behavioral", `{"questions":[{"prompt":"Tell me about a conflict."}]}`))
	})

	t.Run("not json", func(t *testing.T) {
		assert.Error(t, ValidateQuestions("behavioral", `questions: none`))
	})

	t.Run("unknown schema", func(t *testing.T) {
		err := Validate("essay", `{}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown schema")
	})
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore(`{"score":0.75,"feedback":"solid"}`))
	assert.Error(t, ValidateScore(`{"score":1.5,"feedback":"too generous"}`))
}

func TestOpenAIClient(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\":0.5,\"feedback\":\"ok\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("sk-test", "", srv.URL+"/v1")
	require.NoError(t, err)

	out, err := client.GenerateJSON(context.Background(), Request{System: "grade", Prompt: "answer"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":0.5,"feedback":"ok"}`, out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Provider: "claude"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), Config{Provider: ProviderOpenAI})
	assert.Error(t, err)

	c, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.Model())
}

func TestUnavailable(t *testing.T) {
	c := Unavailable(errors.New("OpenAI API key is required"))

	_, err := c.GenerateJSON(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "API key")
	assert.NoError(t, c.Close())
}
