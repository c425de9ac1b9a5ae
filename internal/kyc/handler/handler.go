// Package handler exposes the verification HTTP API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kyc-gateway/internal/kyc/service"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/httputil"
	"kyc-gateway/pkg/requestcontext"
)

type Handler struct {
	svc         *service.Service
	logger      *slog.Logger
	echoDevCode bool
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithDevCodeEcho includes the expected OTP in issuance responses. Wire this
// on only outside production.
func WithDevCodeEcho(enabled bool) Option {
	return func(h *Handler) { h.echoDevCode = enabled }
}

func New(svc *service.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the verification routes. Callers wrap the router with the
// auth middleware; every route here expects an authenticated user in context.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc", func(r chi.Router) {
		r.Post("/aadhaar/generate-otp", h.generateOTP)
		r.Post("/aadhaar/verify-otp", h.verifyOTP)
		r.Post("/pan", h.recordPAN)
		r.Get("/status", h.status)
		r.Get("/documents", h.documents)
	})
}

type generateOTPResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
	DevCode       string `json:"devCode,omitempty"`
}

func (h *Handler) generateOTP(w http.ResponseWriter, r *http.Request) {
	var req generateOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.svc.StartAadhaarVerification(r.Context(), requestcontext.UserID(r.Context()), req.NationalID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := generateOTPResponse{
		Success:       true,
		Message:       result.Message,
		CorrelationID: result.CorrelationID,
	}
	if h.echoDevCode {
		resp.DevCode = result.DevCode
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type verifyOTPResponse struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	VerifiedDetails verifiedDetails `json:"verifiedDetails"`
}

type verifiedDetails struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dob"`
	Gender      string `json:"gender"`
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	details, err := h.svc.CompleteAadhaarVerification(r.Context(), requestcontext.UserID(r.Context()), req.CorrelationID, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, verifyOTPResponse{
		Success: true,
		Message: "Aadhaar verified successfully",
		VerifiedDetails: verifiedDetails{
			Name:        details.Name,
			DateOfBirth: details.DateOfBirth,
			Gender:      details.Gender,
		},
	})
}

func (h *Handler) recordPAN(w http.ResponseWriter, r *http.Request) {
	var req recordPANRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.RecordPANDocument(r.Context(), requestcontext.UserID(r.Context()), req.PANNumber); err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "PAN document recorded for review",
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Status(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) documents(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Documents(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"documents": views})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	httputil.WriteError(w, err)
}
