package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/config"
)

func TestKeys(t *testing.T) {
	company, interview := uuid.New(), uuid.New()

	key := RecordingKey(company, interview, ".webm")
	assert.True(t, strings.HasPrefix(key, "recordings/"+company.String()+"/"+interview.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".webm"))
	assert.NotEqual(t, key, RecordingKey(company, interview, ".webm"))

	assert.True(t, strings.HasPrefix(ResumeKey(company, interview, ".pdf"), "resumes/"+company.String()))
}

func TestNewUnknownProvider(t *testing.T) {
	var cfg config.Config
	cfg.Storage.Provider = "ftp"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage provider")
}
