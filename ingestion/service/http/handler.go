package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	core "github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/ingestion/service/core"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/storage/store"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/verification"
)

// AnchorHandler serves the anchoring and verification endpoints
type AnchorHandler struct {
	svc    *core.Service
	logger *zap.SugaredLogger
}

// NewAnchorHandler creates a new AnchorHandler
func NewAnchorHandler(s *core.Service, l *zap.SugaredLogger) *AnchorHandler {
	return &AnchorHandler{svc: s, logger: l}
}

// Register mounts every route on e
func (h *AnchorHandler) Register(e *echo.Echo, healthPath, metricsPath string) {
	e.POST("/v1/anchors/waste-items", h.AnchorWasteItem)
	e.POST("/v1/anchors/vendors", h.CertifyVendor)
	e.GET("/v1/submissions/:id/verification", h.GetVerification)
	e.GET(healthPath, h.HealthCheck)
	if metricsPath != "" {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
}

type wasteItemRequest struct {
	SubmissionID     string  `json:"submission_id"`
	ItemType         string  `json:"item_type"`
	WeightKg         float64 `json:"weight_kg"`
	OwnerID          string  `json:"owner_id"`
	CreatedAtEpochMs int64   `json:"created_at_epoch_ms,omitempty"`
}

type vendorRequest struct {
	VendorID       string   `json:"vendor_id"`
	Certifications []string `json:"certifications"`
}

type anchorAcceptedResponse struct {
	RequestID               string `json:"request_id"`
	SubjectID               string `json:"subject_id"`
	ServerReceivedTimestamp string `json:"server_received_timestamp"`
	Status                  string `json:"status"`
}

type attemptResponse struct {
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`
	UpdatedAt    string `json:"updated_at"`
}

type verificationResponse struct {
	SubmissionID string                          `json:"submission_id"`
	Verification verification.VerificationResult `json:"verification"`
	LastAttempt  *attemptResponse                `json:"last_attempt,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// AnchorWasteItem handles POST /v1/anchors/waste-items
func (h *AnchorHandler) AnchorWasteItem(c echo.Context) error {
	var payload wasteItemRequest
	if err := c.Bind(&payload); err != nil {
		h.logger.Debugf("HTTP Handler: Failed to parse JSON request: %v", err)
		return h.respondError(c, "Bad Request: Invalid JSON format", http.StatusBadRequest)
	}

	result, err := h.svc.AnchorSubmission(c.Request().Context(), &core.SubmissionInput{
		SubmissionID:     payload.SubmissionID,
		ItemType:         payload.ItemType,
		WeightKg:         payload.WeightKg,
		OwnerID:          payload.OwnerID,
		CreatedAtEpochMs: payload.CreatedAtEpochMs,
	})
	if err != nil {
		return h.respondServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, accepted(result))
}

// CertifyVendor handles POST /v1/anchors/vendors
func (h *AnchorHandler) CertifyVendor(c echo.Context) error {
	var payload vendorRequest
	if err := c.Bind(&payload); err != nil {
		h.logger.Debugf("HTTP Handler: Failed to parse JSON request: %v", err)
		return h.respondError(c, "Bad Request: Invalid JSON format", http.StatusBadRequest)
	}

	result, err := h.svc.CertifyVendor(c.Request().Context(), &core.VendorInput{
		VendorID:       payload.VendorID,
		Certifications: payload.Certifications,
	})
	if err != nil {
		return h.respondServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, accepted(result))
}

// GetVerification handles GET /v1/submissions/:id/verification[?wait=10s].
// An unavailable history is a normal 200 response, never an error.
func (h *AnchorHandler) GetVerification(c echo.Context) error {
	submissionID := c.Param("id")

	var wait time.Duration
	if raw := c.QueryParam("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return h.respondError(c, "Bad Request: wait must be a duration such as 10s", http.StatusBadRequest)
		}
		wait = d
	}

	view, err := h.svc.Verification(c.Request().Context(), submissionID, wait)
	if err != nil {
		return h.respondServiceError(c, err)
	}

	resp := verificationResponse{SubmissionID: submissionID, Verification: view.Result}
	if view.LastAttempt != nil {
		resp.LastAttempt = attempt(view.LastAttempt)
	}
	return c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health. The gateway stays healthy when the chain is
// down; only anchoring is delayed then.
func (h *AnchorHandler) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	storeStatus := "up"
	if err := h.svc.StoreStatus(ctx); err != nil {
		storeStatus = "down"
	}
	chainStatus := "up"
	if !h.svc.ChainStatus(ctx) {
		chainStatus = "unreachable"
	}

	status, code := "healthy", http.StatusOK
	if storeStatus != "up" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":    status,
		"store":     storeStatus,
		"chain":     chainStatus,
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"service":   "anchor-gateway",
	})
}

func accepted(result *core.AnchorResult) anchorAcceptedResponse {
	return anchorAcceptedResponse{
		RequestID:               result.RequestID,
		SubjectID:               result.SubjectID,
		ServerReceivedTimestamp: result.ReceivedTimestamp.Format(time.RFC3339Nano),
		Status:                  "ACCEPTED",
	}
}

func attempt(s *store.AnchorStatus) *attemptResponse {
	return &attemptResponse{
		RequestID:    s.RequestID,
		Status:       s.Status,
		TxHash:       s.TxHash,
		ErrorMessage: s.ErrorMessage,
		RetryCount:   s.RetryCount,
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (h *AnchorHandler) respondServiceError(c echo.Context, err error) error {
	if errors.Is(err, verification.ErrInvalidInput) {
		return h.respondError(c, err.Error(), http.StatusBadRequest)
	}
	if errors.Is(err, core.ErrBatchProcessorClosed) {
		return h.respondError(c, err.Error(), http.StatusServiceUnavailable)
	}
	h.logger.Errorf("HTTP Handler: Service layer processing failed: %v", err)
	return h.respondError(c, err.Error(), http.StatusInternalServerError)
}

func (h *AnchorHandler) respondError(c echo.Context, message string, statusCode int) error {
	return c.JSON(statusCode, errorResponse{
		Error:   message,
		Status:  statusCode,
		Message: http.StatusText(statusCode),
	})
}
