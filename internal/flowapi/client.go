package flowapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/models"
)

// emailSeparator marks the resolved email inside the update-token
// confirmation message, e.g. "Token updated for alice@example.com".
const emailSeparator = " for "

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL, connectionToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      connectionToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.Default().WithPrefix("flowapi"),
	}
}

// HasToken reports whether a connection token is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// CheckResult is the parsed check-tokens response.
type CheckResult struct {
	Tokens []models.TokenStatus
	// NeedsRefresh lists the emails whose token is both active and stale,
	// in response order.
	NeedsRefresh []string
}

type checkTokensReq struct {
	Emails []string `json:"emails,omitempty"`
}

type checkTokensResp struct {
	Tokens []models.TokenStatus `json:"tokens"`
}

// CheckTokens asks the Flow API which of the given identities hold stale
// tokens. An empty email list queries every identity the API knows about.
func (c *Client) CheckTokens(ctx context.Context, emails []string) (*CheckResult, error) {
	log := logger.FromContext(ctx).WithPrefix("flowapi")
	log.Debug("checking token status for %d emails", len(emails))

	var resp checkTokensResp
	if err := c.post(ctx, "/api/plugin/check-tokens", checkTokensReq{Emails: emails}, &resp); err != nil {
		log.Error("check-tokens failed: %v", err)
		return nil, err
	}

	result := &CheckResult{Tokens: resp.Tokens}
	for _, t := range resp.Tokens {
		if t.NeedsRefresh && t.IsActive {
			result.NeedsRefresh = append(result.NeedsRefresh, t.Email)
		}
	}

	log.Info("token status: %d known, %d need refresh", len(resp.Tokens), len(result.NeedsRefresh))
	return result, nil
}

// UpdateResult is the parsed update-token response.
type UpdateResult struct {
	Action  string
	Message string
	// Email is parsed out of Message; empty when the API did not embed one.
	Email string
}

type updateTokenReq struct {
	SessionToken string `json:"session_token"`
}

type updateTokenResp struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// UpdateToken pushes a freshly extracted session token to the Flow API.
func (c *Client) UpdateToken(ctx context.Context, sessionToken string) (*UpdateResult, error) {
	log := logger.FromContext(ctx).WithPrefix("flowapi")
	log.Debug("pushing session token")

	var resp updateTokenResp
	if err := c.post(ctx, "/api/plugin/update-token", updateTokenReq{SessionToken: sessionToken}, &resp); err != nil {
		log.Error("update-token failed: %v", err)
		return nil, err
	}

	result := &UpdateResult{
		Action:  resp.Action,
		Message: resp.Message,
		Email:   parseEmailFromMessage(resp.Message),
	}
	log.Info("token pushed: action=%s email=%s", result.Action, result.Email)
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.token == "" {
		return fmt.Errorf("connection token not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("%s responded in %v, status=%d", path, time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s status %d: %s", path, resp.StatusCode, string(snippet))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// parseEmailFromMessage extracts the identity embedded in a human-readable
// confirmation message. The email is the substring after the last
// occurrence of the separator; absent separator means no email resolved.
func parseEmailFromMessage(msg string) string {
	idx := strings.LastIndex(msg, emailSeparator)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(msg[idx+len(emailSeparator):])
}
