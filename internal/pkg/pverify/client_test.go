package pverify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const summaryBody = `{
  "APIResponseCode": "0",
  "APIResponseMessage": "Processed",
  "PlanCoverageSummary": {"Status": "Active"},
  "HBPC_Deductible_OOP_Summary": {
    "IndividualDeductibleInNet": {"Value": "$1,500.00"},
    "IndividualDeductibleRemainingInNet": {"Value": "$1,200.00"},
    "IndividualOOP_InNet": {"Value": "$4,000.00"},
    "IndividualOOPRemainingInNet": {"Value": "$3,500.00"},
    "FamilyDeductibleInNet": {"Value": "$3,000.00"},
    "FamilyDeductibleRemainingInNet": {"Value": "$2,750.50"},
    "FamilyOOP_InNet": {"Value": "$8,000.00"},
    "FamilyOOPRemainingInNet": {"Value": "N/A"}
  },
  "SpecialistOfficeSummary": {
    "CoInsInNet": {"Value": "20%"},
    "CoPayInNet": {"Value": "$40.00"}
  }
}`

type fakePVerify struct {
	tokenCalls   atomic.Int32
	summaryCalls atomic.Int32
	// summaryStatuses is consumed one per call; after that 200 is returned
	summaryStatuses []int
	lastBody        summaryRequest
}

func (f *fakePVerify) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cb-client", r.PostForm.Get("Client_Id"))
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	mux.HandleFunc(summaryPath, func(w http.ResponseWriter, r *http.Request) {
		n := int(f.summaryCalls.Add(1)) - 1
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "cb-client", r.Header.Get("Client-API-Id"))
		if n < len(f.summaryStatuses) {
			w.WriteHeader(f.summaryStatuses[n])
			_, _ = w.Write([]byte(`{"message":"nope"}`))
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		_, _ = w.Write([]byte(summaryBody))
	})
	return mux
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:      url,
		ClientID:     "cb-client",
		ClientSecret: "secret",
		RetryCount:   3,
		RetryDelay:   time.Millisecond,
	}, zerolog.Nop())
}

var testRequest = Request{
	PayerCode:     "00192",
	SubscriberID:  "W123456789",
	FirstName:     "Ada",
	LastName:      "Lovelace",
	DateOfBirth:   time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
	DateOfService: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
}

func TestEligibilitySummaryIndividual(t *testing.T) {
	fake := &fakePVerify{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	s, err := c.EligibilitySummary(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, &Summary{
		IsActive:                 true,
		DeductibleCents:          150000,
		DeductibleRemainingCents: 120000,
		OOPCents:                 400000,
		OOPRemainingCents:        350000,
		CoinsurancePct:           20,
		CopayCents:               4000,
	}, s)
	assert.Equal(t, "12/10/1990", fake.lastBody.Subscriber.DOB)
	assert.Equal(t, "10/18/2026", fake.lastBody.DOSStartDate)
	assert.Equal(t, "W123456789", fake.lastBody.Subscriber.MemberID)

	// Token is cached across calls
	_, err = c.EligibilitySummary(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestEligibilitySummaryFamily(t *testing.T) {
	fake := &fakePVerify{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	req := testRequest
	req.FamilyPlan = true
	s, err := newTestClient(srv.URL).EligibilitySummary(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), s.DeductibleCents)
	assert.Equal(t, int64(275050), s.DeductibleRemainingCents)
	assert.Equal(t, int64(0), s.OOPRemainingCents)
}

func TestEligibilitySummaryRetriesServerErrors(t *testing.T) {
	fake := &fakePVerify{summaryStatuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EligibilitySummary(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, int32(3), fake.summaryCalls.Load())
}

func TestEligibilitySummaryGivesUpAfterRetries(t *testing.T) {
	fake := &fakePVerify{summaryStatuses: []int{500, 500, 500, 500, 500}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EligibilitySummary(context.Background(), testRequest)
	assert.ErrorIs(t, err, apperrors.ErrEligibilityCall)
	assert.Equal(t, int32(4), fake.summaryCalls.Load())
}

func TestEligibilitySummaryDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakePVerify{summaryStatuses: []int{http.StatusBadRequest}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EligibilitySummary(context.Background(), testRequest)
	assert.ErrorIs(t, err, apperrors.ErrEligibilityCall)
	assert.Equal(t, int32(1), fake.summaryCalls.Load())
}

func TestEligibilitySummaryRefreshesTokenOnUnauthorized(t *testing.T) {
	fake := &fakePVerify{summaryStatuses: []int{http.StatusUnauthorized}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EligibilitySummary(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.tokenCalls.Load())
}

func TestParseSummaryRejectsUnprocessed(t *testing.T) {
	_, err := parseSummary([]byte(`{"APIResponseCode":"1","APIResponseMessage":"Invalid member id"}`), false)
	assert.ErrorContains(t, err, "Invalid member id")

	_, err = parseSummary([]byte(`not json`), false)
	assert.Error(t, err)

	s, err := parseSummary([]byte(`{"PlanCoverageSummary":{"Status":"Inactive"}}`), false)
	require.NoError(t, err)
	assert.False(t, s.IsActive)
}

func TestAmountRoundsNumbersToCents(t *testing.T) {
	tests := map[string]int64{
		`{"v": 1234.56}`:     123456,
		`{"v": 0.125}`:       13,
		`{"v": -12.34}`:      -1234,
		`{"v": -0.125}`:      -13,
		`{"v": "$1,234.56"}`: 123456,
		`{"v": "N/A"}`:       0,
		`{}`:                 0,
	}
	for body, want := range tests {
		got, err := amount(gjson.Get(body, "v"))
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}
}
