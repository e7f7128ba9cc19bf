// Package ownership asks the owner-of-record service whether a caller may change
// the files of an idea.
package ownership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"ideafiles/internal/config"
)

// Validator decides whether the holder of credential owns the idea.
// false means the caller is known but is not the owner; an error means the answer is unknown.
type Validator interface {
	IsOwner(ctx context.Context, ideaID int64, credential string) (bool, error)
}

// ErrUnexpectedResponse is returned when the service answers with anything but a decodable 200.
var ErrUnexpectedResponse = errors.New("ownership: unexpected response")

type ownershipResponse struct {
	Owner *bool `json:"owner"`
}

// HTTPValidator calls GET {base}/ideas/{id}/ownership with the caller's bearer token.
type HTTPValidator struct {
	baseURL *url.URL
	client  *http.Client
}

var _ Validator = (*HTTPValidator)(nil)

// NewHTTPValidator builds a client for the owner-of-record service.
// Outgoing requests are traced through otelhttp.
func NewHTTPValidator(cfg config.OwnershipConfig) (*HTTPValidator, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ownership service url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPValidator{
		baseURL: base,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// IsOwner implements Validator.
func (v *HTTPValidator) IsOwner(ctx context.Context, ideaID int64, credential string) (bool, error) {
	endpoint := v.baseURL.JoinPath("ideas", strconv.FormatInt(ideaID, 10), "ownership")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build ownership request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call ownership service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var body ownershipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: decode body: %v", ErrUnexpectedResponse, err)
	}
	if body.Owner == nil {
		return false, fmt.Errorf("%w: missing owner field", ErrUnexpectedResponse)
	}
	return *body.Owner, nil
}
