package service

import (
	"errors"

	"kyc-gateway/internal/gateway"
	dErrors "kyc-gateway/pkg/domain-errors"
)

// errUnknownChallenge is the uniform answer for an expired, fabricated,
// already-consumed, or lost-race correlation token. Callers cannot tell which
// applied; a fresh challenge is the only way forward.
func errUnknownChallenge() error {
	return dErrors.New(dErrors.CodeBadRequest, "correlation id is not recognized or has expired; request a new otp")
}

// mapProviderErr translates gateway error categories into domain errors.
func mapProviderErr(err error) error {
	switch gateway.Category(err) {
	case gateway.CategoryInvalidInput:
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, providerMessage(err))
	case gateway.CategoryInvalidCredential:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, providerMessage(err))
	case gateway.CategoryUnknownChallenge:
		return errUnknownChallenge()
	case gateway.CategoryTimeout, gateway.CategoryOutage:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider is unavailable; try again later")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity provider request failed")
	}
}

func providerMessage(err error) string {
	var pe *gateway.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return "identity provider request failed"
}
