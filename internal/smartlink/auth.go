package smartlink

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/model"
)

const (
	DefaultAuthURL    = "https://frtest.auth0.com"
	DefaultServerAddr = "smartlink.flexradio.com:443"

	loginPath      = "/oauth/ro"
	delegationPath = "/delegation"
	loginScope     = "openid offline_access email given_name family_name picture"
	refreshScope   = "openid email given_name family_name picture"
	connection     = "Username-Password-Authentication"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	httpTimeout    = 15 * time.Second
)

var (
	ErrNoClientID   = errors.New("no smartlink client id configured")
	ErrNoToken      = errors.New("no id token in response")
	ErrInvalidToken = errors.New("invalid id token")
)

// AuthError is a non-2xx response from the auth service
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, e.Body)
}

type loginRequest struct {
	ClientID   string `json:"client_id"`
	Connection string `json:"connection"`
	Device     string `json:"device"`
	GrantType  string `json:"grant_type"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Scope      string `json:"scope"`
}

type delegationRequest struct {
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	Target       string `json:"target"`
	Scope        string `json:"scope"`
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RequestTokens logs in with user credentials
func (c *Client) RequestTokens(ctx context.Context, user, password string) (model.Tokens, error) {
	req := loginRequest{
		ClientID:   c.clientID,
		Connection: connection,
		Device:     "any",
		GrantType:  "password",
		Username:   user,
		Password:   password,
		Scope:      loginScope,
	}
	var resp tokenResponse
	if err := c.post(ctx, loginPath, req, &resp); err != nil {
		return model.Tokens{}, fmt.Errorf("login %s: %w", user, err)
	}
	if resp.IDToken == "" {
		return model.Tokens{}, ErrNoToken
	}

	tokens := model.Tokens{IDToken: resp.IDToken, RefreshToken: resp.RefreshToken}
	if exp, err := TokenExpiry(resp.IDToken); err == nil {
		tokens.Expires = exp
	} else if resp.ExpiresIn > 0 {
		tokens.Expires = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	log.Info().Str("user", user).Time("expires", tokens.Expires).Msg("Smartlink login succeeded")
	return tokens, nil
}

// RequestIDToken exchanges a refresh token for a new id token
func (c *Client) RequestIDToken(ctx context.Context, refreshToken string) (string, error) {
	req := delegationRequest{
		ClientID:     c.clientID,
		GrantType:    jwtBearerGrant,
		RefreshToken: refreshToken,
		Target:       c.clientID,
		Scope:        refreshScope,
	}
	var resp tokenResponse
	if err := c.post(ctx, delegationPath, req, &resp); err != nil {
		return "", fmt.Errorf("refresh id token: %w", err)
	}
	if resp.IDToken == "" {
		return "", ErrNoToken
	}
	return resp.IDToken, nil
}

// IsValid reports whether idToken is a JWT that has not expired
func (c *Client) IsValid(idToken string) bool {
	exp, err := TokenExpiry(idToken)
	if err != nil {
		return false
	}
	return c.now().Before(exp)
}

// TokenExpiry reads the exp claim from a JWT without verifying it
func TokenExpiry(idToken string) (time.Time, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return time.Time{}, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Exp == 0 {
		return time.Time{}, fmt.Errorf("%w: no exp claim", ErrInvalidToken)
	}
	return time.Unix(claims.Exp, 0), nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	if c.clientID == "" {
		return ErrNoClientID
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AuthError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
