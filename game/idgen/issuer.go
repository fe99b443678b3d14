// Package idgen issues unique session identifiers.
//
// Two issuers are provided: UUIDIssuer generates version 4 UUIDs locally,
// and HTTPIssuer fetches them from a remote UUID service that answers with a
// JSON array of strings. Callers are expected to bound NextID with a context
// deadline; HTTPIssuer honours it for the whole round trip.
package idgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultServiceURL is the public UUID service used when none is configured
const DefaultServiceURL = "https://www.uuidtools.com/api/generate/v1"

var (
	ErrEmptyResponse = errors.New("id service returned no id")
	ErrBadStatus     = errors.New("id service returned an unexpected status")
)

// Issuer returns a fresh identifier for a new session
type Issuer interface {
	NextID(ctx context.Context) (string, error)
}

// UUIDIssuer generates random UUIDs in-process
type UUIDIssuer struct{}

// NextID returns a new version 4 UUID
func (UUIDIssuer) NextID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

// HTTPIssuer fetches identifiers from a remote UUID service
type HTTPIssuer struct {
	url        string
	httpClient *http.Client
}

// NewHTTPIssuer creates an issuer for the service at url.
// An empty url selects DefaultServiceURL.
func NewHTTPIssuer(url string) *HTTPIssuer {
	if url == "" {
		url = DefaultServiceURL
	}
	return &HTTPIssuer{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NextID performs one GET round trip and returns the first id in the response
func (h *HTTPIssuer) NextID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build id request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("id request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var ids []string
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&ids); err != nil {
		return "", fmt.Errorf("failed to decode id response: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrEmptyResponse
	}

	id := strings.TrimSpace(ids[0])
	if id == "" {
		return "", ErrEmptyResponse
	}
	return id, nil
}
