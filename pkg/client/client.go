// Package client is a Go client for the policy console API. Identity
// is injected explicitly at construction; the client never reaches for
// ambient globals.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "github.com/custom-policies/policy-console/api/v1"
)

// Identity scopes requests to an account and optionally carries a
// bearer token.
type Identity struct {
	AccountID string
	Token     string
}

// IdentityProvider supplies the identity for each request. Implementations
// may fetch or refresh credentials; a provider that is not ready yet
// should block on the context or return an error rather than poll.
type IdentityProvider interface {
	Identity(ctx context.Context) (Identity, error)
}

// StaticIdentity is an IdentityProvider for a fixed identity.
type StaticIdentity Identity

func (s StaticIdentity) Identity(ctx context.Context) (Identity, error) {
	return Identity(s), nil
}

// Client talks to the policy console API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	identity   IdentityProvider
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithIdentityProvider sets the identity used on every request.
func WithIdentityProvider(provider IdentityProvider) Option {
	return func(c *Client) { c.identity = provider }
}

// New creates a client for the API rooted at baseURL
// (e.g. "http://localhost:8080/api/policies/v1").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListPolicies fetches one page of policies plus the total row count.
func (c *Client) ListPolicies(ctx context.Context, page v1.Page) ([]v1.Policy, int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/policies", page.QueryValues(), nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, errorFromResponse(resp)
	}

	var paged v1.PagedPolicyResponse
	if err := json.NewDecoder(resp.Body).Decode(&paged); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to parse response: %v", ErrClientInternal, err)
	}
	policies, err := v1.ToPolicies(paged)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrClientInternal, err)
	}

	total, _ := strconv.ParseInt(resp.Header.Get("TotalCount"), 10, 64)
	return policies, total, nil
}

// GetPolicy fetches a single policy by ID.
func (c *Client) GetPolicy(ctx context.Context, id string) (*v1.Policy, error) {
	resp, err := c.do(ctx, http.MethodGet, "/policies/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}
	return decodePolicy(resp.Body)
}

// CreatePolicy submits a new policy and returns the stored version.
func (c *Client) CreatePolicy(ctx context.Context, policy v1.Policy) (*v1.Policy, error) {
	request, err := v1.ToServerPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInternal, err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/policies", nil, request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, errorFromResponse(resp)
	}
	return decodePolicy(resp.Body)
}

// UpdatePolicy replaces an existing policy and returns the stored
// version.
func (c *Client) UpdatePolicy(ctx context.Context, id string, policy v1.Policy) (*v1.Policy, error) {
	request, err := v1.ToServerPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInternal, err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/policies/"+id, nil, request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}
	return decodePolicy(resp.Body)
}

// DeletePolicies deletes policies in bulk, returning the IDs that were
// removed.
func (c *Client) DeletePolicies(ctx context.Context, ids []string) ([]string, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/policies/ids", nil, ids)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var deleted []string
	if err := json.NewDecoder(resp.Body).Decode(&deleted); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrClientInternal, err)
	}
	return deleted, nil
}

// SetEnabled flips the enabled flag on policies in bulk.
func (c *Client) SetEnabled(ctx context.Context, ids []string, enabled bool) error {
	query := url.Values{"enabled": []string{strconv.FormatBool(enabled)}}
	resp, err := c.do(ctx, http.MethodPost, "/policies/ids/enabled", query, ids)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// ValidateCondition checks a candidate policy's condition expression on
// the server without persisting it.
func (c *Client) ValidateCondition(ctx context.Context, policy v1.Policy) error {
	request, err := v1.ToServerPolicy(policy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClientInternal, err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/policies/validate", nil, request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// ValidateName checks a candidate name for validity and uniqueness.
// excludeID, when non-empty, skips the policy being edited.
func (c *Client) ValidateName(ctx context.Context, name, excludeID string) error {
	var query url.Values
	if excludeID != "" {
		query = url.Values{"id": []string{excludeID}}
	}

	resp, err := c.do(ctx, http.MethodPost, "/policies/validate-name", query, name)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// ListTriggers fetches one page of a policy's firing history plus the
// total count.
func (c *Client) ListTriggers(ctx context.Context, policyID string, page v1.Page) ([]v1.Trigger, int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/policies/"+policyID+"/history/trigger", page.QueryValues(), nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, errorFromResponse(resp)
	}

	var paged v1.PagedTriggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&paged); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to parse response: %v", ErrClientInternal, err)
	}
	total, _ := strconv.ParseInt(resp.Header.Get("TotalCount"), 10, 64)
	return paged.Data, total, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClientInternal, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInternal, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.identity != nil {
		identity, err := c.identity.Identity(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClientInternal, err)
		}
		if identity.AccountID != "" {
			req.Header.Set("X-Account-Id", identity.AccountID)
		}
		if identity.Token != "" {
			req.Header.Set("Authorization", "Bearer "+identity.Token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func decodePolicy(body io.Reader) (*v1.Policy, error) {
	var response v1.ServerPolicyResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrClientInternal, err)
	}
	policy, err := v1.ToPolicy(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInternal, err)
	}
	return &policy, nil
}
