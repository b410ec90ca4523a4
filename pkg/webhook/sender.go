package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gradiiai/gradii-sub007/pkg/netguard"
)

// maxResponseBytes is how much of a subscriber's response body is kept for diagnostics.
const maxResponseBytes = 2048

// Request is one signed delivery.
type Request struct {
	URL        string
	Secret     string
	Event      string
	DeliveryID uuid.UUID
	Body       []byte
}

// Result of a delivery attempt. StatusCode is zero when no response arrived.
type Result struct {
	StatusCode int
	Body       string
}

// Sender POSTs signed webhook payloads. It is safe for concurrent use.
type Sender struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewSender refuses to dial loopback, private and link-local addresses unless
// allowPrivate is set, which is meant for local development.
func NewSender(timeout time.Duration, allowPrivate bool) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		// subscribers must answer directly
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	if !allowPrivate {
		client.Transport = netguard.Transport()
	}
	return &Sender{httpClient: client, now: time.Now}
}

// Send performs the request. A non-2xx response is returned as an error
// together with the response details.
func (s *Sender) Send(ctx context.Context, r Request) (Result, error) {
	ts := s.now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return Result{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Gradii-Webhooks/1.0")
	req.Header.Set(HeaderEvent, r.Event)
	req.Header.Set(HeaderDelivery, r.DeliveryID.String())
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, Sign(r.Secret, ts, r.Body))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	res := Result{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("endpoint responded with status %d", resp.StatusCode)
	}
	return res, nil
}
