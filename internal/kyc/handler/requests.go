package handler

import (
	"strings"

	dErrors "kyc-gateway/pkg/domain-errors"
)

type generateOTPRequest struct {
	NationalID string `json:"nationalId"`
}

func (r *generateOTPRequest) Normalize() {
	r.NationalID = strings.TrimSpace(r.NationalID)
}

func (r *generateOTPRequest) Validate() error {
	if r.NationalID == "" {
		return dErrors.New(dErrors.CodeValidation, "nationalId is required")
	}
	return nil
}

type verifyOTPRequest struct {
	CorrelationID string `json:"correlationId"`
	Code          string `json:"code"`
}

func (r *verifyOTPRequest) Normalize() {
	r.CorrelationID = strings.TrimSpace(r.CorrelationID)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *verifyOTPRequest) Validate() error {
	if r.CorrelationID == "" {
		return dErrors.New(dErrors.CodeValidation, "correlationId is required")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

type recordPANRequest struct {
	PANNumber string `json:"panNumber"`
}

func (r *recordPANRequest) Normalize() {
	r.PANNumber = strings.TrimSpace(r.PANNumber)
}

func (r *recordPANRequest) Validate() error {
	if r.PANNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "panNumber is required")
	}
	return nil
}
