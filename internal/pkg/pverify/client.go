// Package pverify is a client for the pVerify real-time eligibility API.
package pverify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/money"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	tokenPath   = "/Token"
	summaryPath = "/api/EligibilitySummary"
	dateLayout  = "01/02/2006"

	// responseProcessed is the APIResponseCode of a completed lookup
	responseProcessed = "0"
)

// Config configures the client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	RetryCount   int
	// RetryDelay is the initial back-off delay; doubled on each attempt.
	RetryDelay time.Duration
}

// Request identifies the subscriber and date of service to look up.
type Request struct {
	PayerCode     string
	SubscriberID  string
	FirstName     string
	LastName      string
	DateOfBirth   time.Time
	DateOfService time.Time
	FamilyPlan    bool
}

// Summary is the subset of the eligibility summary the platform uses.
type Summary struct {
	IsActive                 bool  `json:"isActive"`
	DeductibleCents          int64 `json:"deductibleCents"`
	DeductibleRemainingCents int64 `json:"deductibleRemainingCents"`
	OOPCents                 int64 `json:"oopCents"`
	OOPRemainingCents        int64 `json:"oopRemainingCents"`
	CoinsurancePct           int   `json:"coinsurancePct"`
	CopayCents               int64 `json:"copayCents"`
}

// statusError carries a non-2xx HTTP response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

// Client calls pVerify with OAuth client-credential tokens.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewClient creates a new Client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// EligibilitySummary looks up coverage for req. Transport errors, 5xx
// responses and an expired token are retried; other failures are returned
// immediately. Every failure wraps apperrors.ErrEligibilityCall.
func (c *Client) EligibilitySummary(ctx context.Context, req Request) (*Summary, error) {
	payload, err := json.Marshal(buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", apperrors.ErrEligibilityCall, err)
	}

	var body []byte
	err = retry.Do(
		func() error {
			token, err := c.accessToken(ctx)
			if err != nil {
				return err
			}
			body, err = c.post(ctx, summaryPath, token, payload)
			var se *statusError
			if errors.As(err, &se) && se.status == http.StatusUnauthorized {
				c.clearToken()
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.RetryCount)+1),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).Str("payerCode", req.PayerCode).Msg("pVerify call failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEligibilityCall, err)
	}

	summary, err := parseSummary(body, req.FamilyPlan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEligibilityCall, err)
	}
	return summary, nil
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500 || se.status == http.StatusUnauthorized || se.status == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// accessToken returns the cached token or fetches a new one.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"Client_Id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", errors.New("token response has no access_token")
	}
	expiresIn := gjson.GetBytes(body, "expires_in").Int()
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = token
	// Refresh a minute early
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn)*time.Second - time.Minute)
	c.logger.Debug().Int64("expiresIn", expiresIn).Msg("pVerify access token refreshed")
	return token, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Client-API-Id", c.cfg.ClientID)
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &statusError{status: resp.StatusCode, body: snippet}
	}
	return body, nil
}

type subscriber struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	MemberID  string `json:"memberID"`
}

type summaryRequest struct {
	PayerCode           string     `json:"payerCode"`
	IsSubscriberPatient string     `json:"isSubscriberPatient"`
	Subscriber          subscriber `json:"subscriber"`
	DOSStartDate        string     `json:"doS_StartDate"`
	DOSEndDate          string     `json:"doS_EndDate"`
	RequestSource       string     `json:"requestSource"`
}

func buildPayload(req Request) summaryRequest {
	dos := req.DateOfService.Format(dateLayout)
	return summaryRequest{
		PayerCode:           req.PayerCode,
		IsSubscriberPatient: "True",
		Subscriber: subscriber{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			DOB:       req.DateOfBirth.Format(dateLayout),
			MemberID:  req.SubscriberID,
		},
		DOSStartDate:  dos,
		DOSEndDate:    dos,
		RequestSource: "API",
	}
}

// parseSummary extracts amounts from an EligibilitySummary response.
// Family plans read the family accumulators.
func parseSummary(body []byte, family bool) (*Summary, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)

	if code := doc.Get("APIResponseCode").String(); code != "" && code != responseProcessed {
		return nil, fmt.Errorf("lookup not processed (code %s): %s", code, doc.Get("APIResponseMessage").String())
	}

	scope := "Individual"
	if family {
		scope = "Family"
	}
	oop := doc.Get("HBPC_Deductible_OOP_Summary")

	s := &Summary{
		IsActive: strings.EqualFold(doc.Get("PlanCoverageSummary.Status").String(), "Active"),
	}

	fields := []struct {
		path string
		dest *int64
	}{
		{scope + "DeductibleInNet.Value", &s.DeductibleCents},
		{scope + "DeductibleRemainingInNet.Value", &s.DeductibleRemainingCents},
		{scope + "OOP_InNet.Value", &s.OOPCents},
		{scope + "OOPRemainingInNet.Value", &s.OOPRemainingCents},
	}
	for _, f := range fields {
		cents, err := amount(oop.Get(f.path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.path, err)
		}
		*f.dest = cents
	}

	office := doc.Get("SpecialistOfficeSummary")
	if v := office.Get("CoInsInNet.Value"); v.Exists() && v.String() != "" {
		pct, err := money.Percent(v.String())
		if err != nil {
			return nil, fmt.Errorf("CoInsInNet: %w", err)
		}
		s.CoinsurancePct = pct
	}
	copay, err := amount(office.Get("CoPayInNet.Value"))
	if err != nil {
		return nil, fmt.Errorf("CoPayInNet: %w", err)
	}
	s.CopayCents = copay

	return s, nil
}

// amount converts a "$1,234.56" field to cents; absent or blank is zero.
func amount(v gjson.Result) (int64, error) {
	if !v.Exists() {
		return 0, nil
	}
	if v.Type == gjson.Number {
		return int64(math.Round(v.Float() * 100)), nil
	}
	s := strings.TrimSpace(v.String())
	if s == "" || strings.EqualFold(s, "N/A") {
		return 0, nil
	}
	return money.ParseDollars(s)
}
