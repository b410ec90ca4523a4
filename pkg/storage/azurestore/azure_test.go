package azurestore

import (
	"context"
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Container: "recordings"})
	assert.Error(t, err)

	_, err = New(Config{AccountName: "acct", AccountKey: base64.StdEncoding.EncodeToString([]byte("key"))})
	assert.Error(t, err)
}

func TestSignedURL(t *testing.T) {
	store, err := New(Config{
		AccountName: "gradiitest",
		AccountKey:  base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
		Container:   "recordings",
	})
	require.NoError(t, err)

	raw, err := store.SignedURL(context.Background(), "recordings/c/i/a.webm", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "gradiitest.blob.core.windows.net", u.Host)
	assert.Equal(t, "/recordings/recordings/c/i/a.webm", u.Path)
	assert.Equal(t, "r", u.Query().Get("sp"))
	assert.NotEmpty(t, u.Query().Get("sig"))
}
