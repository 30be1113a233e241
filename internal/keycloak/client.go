// Package keycloak is a minimal admin client for provisioning per-account
// identity realms. Only the operations the onboarding workflow needs are
// implemented.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	adminToken string
}

func NewClient(baseURL, adminToken string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		adminToken: adminToken,
	}
}

// ProvisionRealm creates the realm named after the account UID and seeds the
// admin user with the given email. A 409 from the admin API means the realm
// already exists and is treated as success, which makes the call safe to
// retry.
func (c *Client) ProvisionRealm(ctx context.Context, realmUID, adminEmail string) error {
	payload := map[string]any{
		"realm":   realmUID,
		"enabled": true,
		"users": []map[string]any{
			{"email": adminEmail, "enabled": true},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal realm: %w", err)
	}

	url := fmt.Sprintf("%s/admin/realms", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create realm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create realm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create realm %s: status %d: %s", realmUID, resp.StatusCode, string(respBody))
	}
	return nil
}
