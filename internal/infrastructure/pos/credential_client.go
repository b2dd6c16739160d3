package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/config"
)

// tokenSkew is how long before expiry a cached token stops being served
const tokenSkew = 30 * time.Second

// tokenResponse is the token endpoint payload of the credential service
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// webhookSecretResponse is the webhook-secret endpoint payload
type webhookSecretResponse struct {
	Secret string `json:"secret"`
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// CredentialClient implements CredentialService against the external
// credential vault. Tokens are cached until shortly before expiry; secrets
// are fetched on every call since webhook volume is low and rotation must
// take effect immediately.
type CredentialClient struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	tokens map[string]cachedToken
}

// NewCredentialClient creates a new credential service client
func NewCredentialClient(cfg config.CredentialsConfig) *CredentialClient {
	return &CredentialClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens: make(map[string]cachedToken),
	}
}

// GetValidToken returns a non-expired access token for a tenant/provider pair
func (c *CredentialClient) GetValidToken(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (string, error) {
	key := fmt.Sprintf("%s:%s", tenantID, provider)

	c.mu.RLock()
	cached, ok := c.tokens[key]
	c.mu.RUnlock()
	if ok && time.Now().Add(tokenSkew).Before(cached.expiresAt) {
		return cached.token, nil
	}

	var resp tokenResponse
	path := fmt.Sprintf("/v1/tenants/%s/providers/%s/token", tenantID, provider)
	if err := c.get(ctx, path, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: credential service returned empty token", possync.ErrCredentialUnavailable)
	}

	c.mu.Lock()
	c.tokens[key] = cachedToken{token: resp.AccessToken, expiresAt: resp.ExpiresAt}
	c.mu.Unlock()

	return resp.AccessToken, nil
}

// WebhookSecret returns the current webhook signing secret for a
// tenant/provider pair
func (c *CredentialClient) WebhookSecret(ctx context.Context, tenantID uuid.UUID, provider possync.ProviderCode) (string, error) {
	var resp webhookSecretResponse
	path := fmt.Sprintf("/v1/tenants/%s/providers/%s/webhook-secret", tenantID, provider)
	if err := c.get(ctx, path, &resp); err != nil {
		return "", err
	}
	if resp.Secret == "" {
		return "", fmt.Errorf("%w: credential service returned empty webhook secret", possync.ErrCredentialUnavailable)
	}
	return resp.Secret, nil
}

func (c *CredentialClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("credentials: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", possync.ErrCredentialUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", possync.ErrCredentialUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", possync.ErrCredentialUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", possync.ErrCredentialUnavailable, err)
	}
	return nil
}

// Ensure CredentialClient implements CredentialService
var _ possync.CredentialService = (*CredentialClient)(nil)
