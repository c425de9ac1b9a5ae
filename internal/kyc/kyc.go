// Package kyc is the identity verification vertical: Aadhaar OTP challenge
// orchestration, PAN document intake, and the per-user KYC aggregate.
//
// The façade re-exports the pieces wiring code needs so callers depend on one
// import path instead of the internal sub-packages.
package kyc

import (
	"kyc-gateway/internal/kyc/handler"
	"kyc-gateway/internal/kyc/metrics"
	"kyc-gateway/internal/kyc/service"
)

type (
	Service = service.Service
	Handler = handler.Handler
	Metrics = metrics.Metrics

	DocumentStore = service.DocumentStore
	ProfileStore  = service.ProfileStore
	StoreTx       = service.StoreTx
)

var (
	NewService = service.New
	NewHandler = handler.New
	NewMetrics = metrics.New

	WithLogger                 = service.WithLogger
	WithMetrics                = service.WithMetrics
	WithAuditPublisher         = service.WithAuditPublisher
	WithProviderPayloadCapture = service.WithProviderPayloadCapture

	WithHandlerLogger = handler.WithLogger
	WithDevCodeEcho   = handler.WithDevCodeEcho
)
