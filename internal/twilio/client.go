package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	twiliogo "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

const defaultBaseURL = "https://api.twilio.com"

// Config holds credentials for the Twilio REST API and Access Tokens.
type Config struct {
	AccountSID string
	AuthToken  string
	BaseURL    string // optional, defaults to https://api.twilio.com

	// Access Token signing (browser voice SDK)
	APIKeySID    string
	APIKeySecret string
	TwiMLAppSID  string
	TokenTTL     time.Duration

	HTTPClient *http.Client
}

// Client talks to the Twilio Calls resource and mints voice tokens.
// It is built once at startup and shared by all handlers.
type Client struct {
	accountSID   string
	rest         *twiliogo.RestClient
	apiKeySID    string
	apiKeySecret string
	twimlAppSID  string
	tokenTTL     time.Duration
	httpClient   *http.Client
	now          func() time.Time
}

// NewClient creates a Twilio client. AccountSID and AuthToken are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio: account SID and auth token are required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL != "" && baseURL != defaultBaseURL {
		base, err := url.Parse(baseURL)
		if err != nil || base.Scheme == "" || base.Host == "" {
			return nil, fmt.Errorf("twilio: invalid base URL %q", cfg.BaseURL)
		}
		hc := *httpClient
		hc.Transport = &baseURLTransport{base: base, next: hc.Transport}
		httpClient = &hc
	}

	sdk := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	sdk.SetAccountSid(cfg.AccountSID)

	return &Client{
		accountSID:   cfg.AccountSID,
		rest:         twiliogo.NewRestClientWithParams(twiliogo.ClientParams{Client: sdk}),
		apiKeySID:    cfg.APIKeySID,
		apiKeySecret: cfg.APIKeySecret,
		twimlAppSID:  cfg.TwiMLAppSID,
		tokenTTL:     clampTokenTTL(cfg.TokenTTL),
		httpClient:   httpClient,
		now:          time.Now,
	}, nil
}

// Call is the subset of the Twilio call resource we read back.
type Call struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

// CallParams describes an outbound call to create.
type CallParams struct {
	To                   string
	From                 string
	URL                  string // TwiML fetch URL
	Method               string // GET or POST
	StatusCallback       string
	StatusCallbackMethod string
	StatusCallbackEvents []string
}

// APIError is the JSON error document Twilio returns on 4xx/5xx.
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Twilio API error: %d", e.Status)
}

// CreateCall places an outbound call.
func (c *Client) CreateCall(ctx context.Context, p CallParams) (*Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &api.CreateCallParams{}
	params.SetTo(p.To)
	params.SetFrom(p.From)
	params.SetUrl(p.URL)
	if p.Method != "" {
		params.SetMethod(p.Method)
	}
	if p.StatusCallback != "" {
		params.SetStatusCallback(p.StatusCallback)
		if p.StatusCallbackMethod != "" {
			params.SetStatusCallbackMethod(p.StatusCallbackMethod)
		}
		if len(p.StatusCallbackEvents) > 0 {
			params.SetStatusCallbackEvent(p.StatusCallbackEvents)
		}
	}

	resp, err := c.rest.Api.CreateCall(params)
	if err != nil {
		return nil, apiError("create call", err)
	}
	return toCall(resp), nil
}

// UpdateCallStatus moves a live call to the given status ("completed" or "canceled").
func (c *Client) UpdateCallStatus(ctx context.Context, callSID, status string) (*Call, error) {
	if callSID == "" {
		return nil, errors.New("twilio: call SID is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &api.UpdateCallParams{}
	params.SetStatus(status)

	resp, err := c.rest.Api.UpdateCall(callSID, params)
	if err != nil {
		return nil, apiError("update call", err)
	}
	return toCall(resp), nil
}

// HangupCall ends a call by completing it.
func (c *Client) HangupCall(ctx context.Context, callSID string) error {
	_, err := c.UpdateCallStatus(ctx, callSID, "completed")
	return err
}

// CloseIdleConnections releases pooled connections on shutdown.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// apiError keeps Twilio's own message as the error text so handlers can
// pass it through to the caller.
func apiError(op string, err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return &APIError{
			Status:   restErr.Status,
			Code:     restErr.Code,
			Message:  restErr.Message,
			MoreInfo: restErr.MoreInfo,
		}
	}
	return fmt.Errorf("twilio: %s: %w", op, err)
}

func toCall(resp *api.ApiV2010Call) *Call {
	call := &Call{}
	if resp == nil {
		return call
	}
	if resp.Sid != nil {
		call.SID = *resp.Sid
	}
	if resp.Status != nil {
		call.Status = *resp.Status
	}
	if resp.To != nil {
		call.To = *resp.To
	}
	if resp.From != nil {
		call.From = *resp.From
	}
	return call
}

// baseURLTransport points SDK requests at a different API host, such as a
// regional edge or a local stub.
type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.Host = t.base.Host
	return t.transport().RoundTrip(out)
}

func (t *baseURLTransport) CloseIdleConnections() {
	if ci, ok := t.transport().(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

func (t *baseURLTransport) transport() http.RoundTripper {
	if t.next != nil {
		return t.next
	}
	return http.DefaultTransport
}
