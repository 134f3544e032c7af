package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/logger"
)

const defaultBaseURL = "https://verify.twilio.com/v2"

// Client talks to the Twilio Verify Passkeys REST API. Every call is
// authenticated with the account SID and auth token via HTTP Basic auth.
// The ceremony options in factor and challenge responses are relayed as raw
// JSON; this service never interprets them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	serviceSID string
	logger     *zap.Logger
}

// NewClient constructs a verify client from configuration.
func NewClient(cfg config.TwilioSettings, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		serviceSID: cfg.ServiceSID,
		logger:     log,
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type factorResponse struct {
	SID     string          `json:"sid"`
	Options json.RawMessage `json:"options"`
}

type challengeResponse struct {
	SID     string          `json:"sid"`
	Options json.RawMessage `json:"options"`
}

type statusResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// CreateFactor registers a new passkey factor for the identity and returns
// the ceremony-creation options.
func (c *Client) CreateFactor(ctx context.Context, identity, friendlyName string) (*port.Factor, error) {
	payload := map[string]string{
		"friendly_name": friendlyName,
		"identity":      identity,
	}

	var out factorResponse
	if err := c.postJSON(ctx, c.passkeysURL("Factors"), payload, &out); err != nil {
		return nil, err
	}
	if out.SID == "" {
		return nil, fmt.Errorf("factor response missing sid")
	}

	c.logger.Debug("passkey factor created",
		zap.String("factor_sid", logger.MaskString(out.SID)),
		zap.String("identity", identity),
	)

	return &port.Factor{SID: out.SID, Options: out.Options}, nil
}

// VerifyFactor submits the attestation credential produced by the browser.
func (c *Client) VerifyFactor(ctx context.Context, credential json.RawMessage) error {
	var out statusResponse
	return c.postRaw(ctx, c.passkeysURL("VerifyFactor"), credential, &out)
}

// CreateChallenge opens an authentication challenge for the identity and
// returns the ceremony-assertion options.
func (c *Client) CreateChallenge(ctx context.Context, identity string) (*port.Challenge, error) {
	payload := map[string]string{"identity": identity}

	var out challengeResponse
	if err := c.postJSON(ctx, c.passkeysURL("Challenges"), payload, &out); err != nil {
		return nil, err
	}
	if out.SID == "" {
		return nil, fmt.Errorf("challenge response missing sid")
	}

	c.logger.Debug("passkey challenge created",
		zap.String("challenge_sid", logger.MaskString(out.SID)),
		zap.String("identity", identity),
	)

	return &port.Challenge{SID: out.SID, Options: out.Options}, nil
}

// ApproveChallenge submits the assertion credential and returns the
// upstream verdict.
func (c *Client) ApproveChallenge(ctx context.Context, credential json.RawMessage) (port.ChallengeStatus, error) {
	var out statusResponse
	if err := c.postRaw(ctx, c.passkeysURL("ApproveChallenge"), credential, &out); err != nil {
		return "", err
	}
	if out.Status == "" {
		return "", fmt.Errorf("challenge response missing status")
	}
	return port.ChallengeStatus(out.Status), nil
}

// Service describes a Twilio Verify service, used by the provisioning CLI.
type Service struct {
	SID          string `json:"sid"`
	FriendlyName string `json:"friendly_name"`
}

// ServiceParams carries the passkey relying-party configuration applied when
// provisioning a Verify service.
type ServiceParams struct {
	FriendlyName            string
	RelyingPartyID          string
	RelyingPartyName        string
	RelyingPartyOrigins     []string
	AuthenticatorAttachment string
	DiscoverableCredentials string
	UserVerification        string
}

// CreateService provisions a new Verify service configured for passkeys.
// The Services API is form-encoded, unlike the passkeys endpoints.
func (c *Client) CreateService(ctx context.Context, params ServiceParams) (*Service, error) {
	form := url.Values{}
	form.Set("FriendlyName", params.FriendlyName)
	form.Set("Passkeys.RelyingParty.Id", params.RelyingPartyID)
	form.Set("Passkeys.RelyingParty.Name", params.RelyingPartyName)
	for _, origin := range params.RelyingPartyOrigins {
		form.Add("Passkeys.RelyingParty.Origins", origin)
	}
	form.Set("Passkeys.AuthenticatorAttachment", params.AuthenticatorAttachment)
	form.Set("Passkeys.DiscoverableCredentials", params.DiscoverableCredentials)
	form.Set("Passkeys.UserVerification", params.UserVerification)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Services", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out Service
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchService looks up an existing Verify service by SID.
func (c *Client) FetchService(ctx context.Context, serviceSID string) (*Service, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Services/"+serviceSID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var out Service
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) passkeysURL(operation string) string {
	return fmt.Sprintf("%s/Services/%s/Passkeys/%s", c.baseURL, c.serviceSID, operation)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.postRaw(ctx, endpoint, body, out)
}

func (c *Client) postRaw(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("verify api request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return fmt.Errorf("verify api %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("verify api returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

var _ port.PasskeyVerifier = (*Client)(nil)
