package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Live is the adapter for the real Aadhaar OTP provider. It maps transport
// failures and provider status codes onto the normalized error taxonomy so
// the verification core never sees HTTP details.
type Live struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewLive constructs the live backend. The timeout bounds each provider round
// trip; a stalled provider surfaces as a retryable CategoryTimeout failure
// rather than hanging the request.
func NewLive(baseURL, apiKey string, timeout time.Duration) *Live {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Live{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type issueRequest struct {
	AadhaarNumber string `json:"aadhaar_number"`
}

type issueResponse struct {
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
}

type resolveRequest struct {
	CorrelationID string `json:"correlation_id"`
	OTP           string `json:"otp"`
}

type resolveResponse struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
}

func (l *Live) IssueChallenge(ctx context.Context, nationalID string) (Challenge, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return Challenge{}, err
	}

	var resp issueResponse
	if _, err := l.post(ctx, "/v1/otp/generate", issueRequest{AadhaarNumber: nationalID}, &resp); err != nil {
		return Challenge{}, err
	}
	if resp.CorrelationID == "" {
		return Challenge{}, NewProviderError(CategoryInternal, "provider response missing correlation id", nil)
	}
	return Challenge{CorrelationID: resp.CorrelationID, Message: resp.Message}, nil
}

func (l *Live) ResolveChallenge(ctx context.Context, correlationID, code string) (Identity, error) {
	if correlationID == "" || code == "" {
		return Identity{}, NewProviderError(CategoryInvalidInput, "correlation id and code are required", nil)
	}

	var resp resolveResponse
	raw, err := l.post(ctx, "/v1/otp/verify", resolveRequest{CorrelationID: correlationID, OTP: code}, &resp)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Name:        resp.Name,
		DateOfBirth: resp.DateOfBirth,
		Gender:      resp.Gender,
		Address:     resp.Address,
		Raw:         raw,
	}, nil
}

// post sends a JSON request and decodes the response on 2xx. The raw body is
// returned so callers can retain the full provider payload for audit.
func (l *Live) post(ctx context.Context, path string, body, out any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError(CategoryInternal, "marshal provider request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(CategoryInternal, "build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, NewProviderError(CategoryTimeout, "provider call timed out", err)
		}
		return nil, NewProviderError(CategoryOutage, "provider unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, NewProviderError(CategoryOutage, "read provider response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, NewProviderError(CategoryInternal, "decode provider response", err)
		}
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, NewProviderError(CategoryOutage, "provider rejected credentials", nil)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, NewProviderError(CategoryUnknownChallenge, "correlation id not recognized or expired", nil)
	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusBadRequest:
		return nil, NewProviderError(CategoryInvalidCredential, providerMessage(raw, "invalid OTP"), nil)
	case resp.StatusCode >= 500:
		return nil, NewProviderError(CategoryOutage, fmt.Sprintf("provider returned %d", resp.StatusCode), nil)
	default:
		return nil, NewProviderError(CategoryInternal, fmt.Sprintf("unexpected provider status %d", resp.StatusCode), nil)
	}
}

func providerMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
