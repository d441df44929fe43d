package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
	core "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/ingestion/service/core"
	gatewayhttp "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/ingestion/service/http"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/messaging/producer"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

type stubHistory struct {
	result    verification.VerificationResult
	reachable bool
}

func (s stubHistory) FetchHistory(context.Context, string) verification.VerificationResult {
	return s.result
}

func (s stubHistory) ChainStatus(context.Context) bool { return s.reachable }

func newServer(t *testing.T, s store.Store, h core.HistoryReader) *echo.Echo {
	t.Helper()
	svc := core.NewService(s, producer.NewMemoryProducer(zap.NewNop().Sugar()), h, zap.NewNop().Sugar(), 10, 10*time.Millisecond, 4)
	t.Cleanup(svc.Close)

	e := echo.New()
	gatewayhttp.NewAnchorHandler(svc, zap.NewNop().Sugar()).Register(e, "/health", "/metrics")
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAnchorEndpoints(t *testing.T) {
	tt := []struct {
		name         string
		path         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "waste item accepted",
			path:         "/v1/anchors/waste-items",
			body:         `{"submission_id":"abc123","item_type":"Laptop","weight_kg":3.2,"owner_id":"user1"}`,
			expectedCode: http.StatusAccepted,
			expectedBody: `"status":"ACCEPTED"`,
		},
		{
			name:         "waste item without id",
			path:         "/v1/anchors/waste-items",
			body:         `{"item_type":"Laptop","weight_kg":3.2}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: "submission id is empty",
		},
		{
			name:         "malformed json",
			path:         "/v1/anchors/waste-items",
			body:         `{"submission_id":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: "Invalid JSON format",
		},
		{
			name:         "vendor accepted",
			path:         "/v1/anchors/vendors",
			body:         `{"vendor_id":"vendor-7","certifications":["R2"]}`,
			expectedCode: http.StatusAccepted,
			expectedBody: `"subject_id":"vendor-7"`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			e := newServer(t, store.NewMemoryStore(), stubHistory{})

			// when
			rec := do(e, http.MethodPost, tc.path, tc.body)

			// then
			require.Equal(t, tc.expectedCode, rec.Code)
			require.Contains(t, rec.Body.String(), tc.expectedBody)
		})
	}
}

func TestGetVerification(t *testing.T) {
	tt := []struct {
		name         string
		history      verification.VerificationResult
		expectedBody string
	}{
		{
			name:         "not yet anchored is a normal response",
			history:      verification.Unavailable(verification.NotYetAnchored),
			expectedBody: `{"submission_id":"abc123","verification":{"available":false,"reason":"NotYetAnchored","message":"Anchoring pending. Your submission is safely recorded; check again shortly."}}`,
		},
		{
			name: "available history",
			history: verification.Available([]types.LedgerTransactionRecord{
				{TransactionHash: "0xa", TimestampEpochSec: 100, Status: types.StatusPending},
			}),
			expectedBody: `{"submission_id":"abc123","verification":{"available":true,"records":[{"transactionHash":"0xa","timestampEpochSec":100,"status":"Pending"}]}}`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			e := newServer(t, store.NewMemoryStore(), stubHistory{result: tc.history})

			rec := do(e, http.MethodGet, "/v1/submissions/abc123/verification", "")

			require.Equal(t, http.StatusOK, rec.Code)
			require.JSONEq(t, tc.expectedBody, rec.Body.String())
		})
	}
}

func TestGetVerificationIncludesLastAttempt(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.InsertAnchorRequests(ctx, []*models.AnchorRequest{{RequestID: "r1", Kind: models.KindWasteItem, SubjectID: "abc123"}}))
	claimed, err := s.GetAndMarkBatchAsProcessing(ctx, []string{"r1"}, 3, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.MarkBatchAsFailed(ctx, []store.FailureRecord{{RequestID: "r1", ClaimToken: claimed["r1"].ClaimToken, ErrorMessage: "Reverted"}}))
	e := newServer(t, s, stubHistory{result: verification.Unavailable(verification.ChainUnreachable)})

	rec := do(e, http.MethodGet, "/v1/submissions/abc123/verification", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		LastAttempt struct {
			Status       string `json:"status"`
			ErrorMessage string `json:"error_message"`
			RetryCount   int    `json:"retry_count"`
		} `json:"last_attempt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, store.StatusFailed, body.LastAttempt.Status)
	require.Equal(t, "Reverted", body.LastAttempt.ErrorMessage)
	require.Equal(t, 1, body.LastAttempt.RetryCount)
}

func TestGetVerificationWait(t *testing.T) {
	available := verification.Available([]types.LedgerTransactionRecord{
		{TransactionHash: "0xabc", TimestampEpochSec: 1_700_000_100, Status: types.StatusPending},
	})

	tt := []struct {
		name         string
		query        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "valid wait",
			query:        "?wait=50ms",
			expectedCode: http.StatusOK,
			expectedBody: `"available":true`,
		},
		{
			name:         "unparseable wait",
			query:        "?wait=soon",
			expectedCode: http.StatusBadRequest,
			expectedBody: "wait must be a duration",
		},
		{
			name:         "negative wait",
			query:        "?wait=-1s",
			expectedCode: http.StatusBadRequest,
			expectedBody: "wait must be a duration",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			e := newServer(t, store.NewMemoryStore(), stubHistory{result: available})

			// when
			rec := do(e, http.MethodGet, "/v1/submissions/abc123/verification"+tc.query, "")

			// then
			require.Equal(t, tc.expectedCode, rec.Code)
			require.Contains(t, rec.Body.String(), tc.expectedBody)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	e := newServer(t, store.NewMemoryStore(), stubHistory{reachable: false})

	rec := do(e, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"chain":"unreachable"`)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newServer(t, store.NewMemoryStore(), stubHistory{})

	rec := do(e, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
