package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

// AuthClient talks to the upstream auth endpoints. Its calls go straight to
// the Dispatcher and are never subject to refresh recovery.
type AuthClient struct {
	transport   Dispatcher
	loginPath   string
	refreshPath string
	logoutPath  string
}

func NewAuthClient(transport Dispatcher, loginPath, refreshPath, logoutPath string) *AuthClient {
	return &AuthClient{
		transport:   transport,
		loginPath:   loginPath,
		refreshPath: refreshPath,
		logoutPath:  logoutPath,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (domain.CredentialPair, error) {
	resp, err := c.post(ctx, c.loginPath, "", loginRequest{Username: username, Password: password})
	if err != nil {
		return domain.CredentialPair{}, err
	}
	return ParseTokenResponse(resp.Body)
}

// Refresh exchanges refreshToken for a new pair.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	resp, err := c.post(ctx, c.refreshPath, "", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return domain.CredentialPair{}, err
	}
	return ParseTokenResponse(resp.Body)
}

func (c *AuthClient) Logout(ctx context.Context, pair domain.CredentialPair) error {
	if c.logoutPath == "" {
		return nil
	}
	_, err := c.post(ctx, c.logoutPath, pair.AccessToken, refreshRequest{RefreshToken: pair.RefreshToken})
	return err
}

func (c *AuthClient) post(ctx context.Context, path, accessToken string, payload any) (domain.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to encode request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	if accessToken != "" {
		header.Set(domain.HeaderAuthorization, "Bearer "+accessToken)
	}

	return c.transport.Dispatch(ctx, domain.Request{
		Method: http.MethodPost,
		Path:   path,
		Header: header,
		Body:   body,
	})
}

var (
	accessTokenPaths = []string{
		"access_token", "accessToken", "token",
		"data.access_token", "data.accessToken", "data.token",
	}
	refreshTokenPaths = []string{
		"refresh_token", "refreshToken",
		"data.refresh_token", "data.refreshToken",
	}
)

// ParseTokenResponse reads a credential pair from a login or refresh response.
// Both tokens must be present.
func ParseTokenResponse(body []byte) (domain.CredentialPair, error) {
	if !gjson.ValidBytes(body) {
		return domain.CredentialPair{}, domain.ErrInvalidTokenResponse.WithCause(fmt.Errorf("body is not JSON"))
	}

	pair := domain.CredentialPair{
		AccessToken:  firstString(body, accessTokenPaths...),
		RefreshToken: firstString(body, refreshTokenPaths...),
	}
	if pair.AccessToken == "" {
		return domain.CredentialPair{}, domain.ErrInvalidTokenResponse.WithCause(fmt.Errorf("missing access token"))
	}
	if pair.RefreshToken == "" {
		return domain.CredentialPair{}, domain.ErrInvalidTokenResponse.WithCause(fmt.Errorf("missing refresh token"))
	}
	return pair, nil
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}
