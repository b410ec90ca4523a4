package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/pkg/netguard"
)

func TestSignVerify(t *testing.T) {
	body := []byte(`{"event":"interview.completed"}`)
	ts := time.Now().Unix()
	sig := Sign("secret", ts, body)

	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, sig)
	assert.NoError(t, Verify("secret", ts, body, sig, 5*time.Minute))
	assert.ErrorIs(t, Verify("other", ts, body, sig, 5*time.Minute), ErrBadSignature)
	assert.ErrorIs(t, Verify("secret", ts, []byte("{}"), sig, 5*time.Minute), ErrBadSignature)

	old := time.Now().Add(-time.Hour).Unix()
	assert.ErrorIs(t, Verify("secret", old, body, Sign("secret", old, body), 5*time.Minute), ErrStale)
	assert.NoError(t, Verify("secret", old, body, Sign("secret", old, body), 0))
}

func TestVerifyBody(t *testing.T) {
	body := []byte(`{"type":"subscription.renewed"}`)
	sig := SignBody("billing", body)

	assert.NoError(t, VerifyBody("billing", body, sig))
	assert.NoError(t, VerifyBody("billing", body, sig[len("sha256="):]))
	assert.ErrorIs(t, VerifyBody("billing", body, "sha256=00"), ErrBadSignature)
	assert.ErrorIs(t, VerifyBody("", body, sig), ErrBadSignature)
}

func TestNewSecret(t *testing.T) {
	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("whsec_")+48)
}

func TestSender(t *testing.T) {
	deliveryID := uuid.New()
	body := []byte(`{"id":"1","event":"webhook.test"}`)

	t.Run("signed delivery", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ := io.ReadAll(r.Body)
			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			require.NoError(t, err)
			assert.NoError(t, Verify("s3cret", ts, got, r.Header.Get(HeaderSignature), time.Minute))
			assert.Equal(t, "webhook.test", r.Header.Get(HeaderEvent))
			assert.Equal(t, deliveryID.String(), r.Header.Get(HeaderDelivery))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		res, err := NewSender(time.Second, true).Send(context.Background(), Request{
			URL: srv.URL, Secret: "s3cret", Event: "webhook.test", DeliveryID: deliveryID, Body: body,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "ok", res.Body)
	})

	t.Run("non 2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("maintenance"))
		}))
		defer srv.Close()

		res, err := NewSender(time.Second, true).Send(context.Background(), Request{URL: srv.URL, Secret: "s", Body: body})
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
		assert.Equal(t, "maintenance", res.Body)
	})

	t.Run("redirects are not followed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "http://169.254.169.254/", http.StatusFound)
		}))
		defer srv.Close()

		res, err := NewSender(time.Second, true).Send(context.Background(), Request{URL: srv.URL, Secret: "s", Body: body})
		require.Error(t, err)
		assert.Equal(t, http.StatusFound, res.StatusCode)
	})

	t.Run("private addresses are refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("guarded sender reached a loopback server")
		}))
		defer srv.Close()

		for _, target := range []string{srv.URL, "http://169.254.169.254/latest/meta-data/"} {
			res, err := NewSender(time.Second, false).Send(context.Background(), Request{URL: target, Secret: "s", Body: body})
			assert.ErrorIs(t, err, netguard.ErrBlockedAddress, target)
			assert.Zero(t, res.StatusCode)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		res, err := NewSender(200*time.Millisecond, true).Send(context.Background(), Request{URL: "http://127.0.0.1:1", Secret: "s", Body: body})
		require.Error(t, err)
		assert.Zero(t, res.StatusCode)
	})
}
