package models

import "time"

// StatusView is the read-only aggregate projection returned to clients.
// It never carries raw document numbers or provider payloads.
type StatusView struct {
	KYCStatus       KYCStatus       `json:"kycStatus"`
	AadhaarVerified bool            `json:"aadhaarVerified"`
	PANVerified     bool            `json:"panVerified"`
	KYCSubmittedAt  *time.Time      `json:"kycSubmittedAt,omitempty"`
	KYCVerifiedAt   *time.Time      `json:"kycVerifiedAt,omitempty"`
	AadhaarDetails  *AadhaarDetails `json:"aadhaarDetails,omitempty"`
	PANDetails      *PANDetails     `json:"panDetails,omitempty"`
}

// AadhaarDetails is the masked detail block present once a Verified Aadhaar
// attempt exists.
type AadhaarDetails struct {
	Name           string `json:"name"`
	DateOfBirth    string `json:"dob"`
	Gender         string `json:"gender"`
	LastFourDigits string `json:"lastFourDigits"`
}

// PANDetails summarizes the most recent PAN document.
type PANDetails struct {
	MaskedNumber string         `json:"panNumber"`
	Status       DocumentStatus `json:"status"`
}

// DocumentView is one row of the masked document history.
type DocumentView struct {
	ID           string         `json:"id"`
	Type         DocumentType   `json:"documentType"`
	MaskedNumber string         `json:"maskedNumber"`
	Status       DocumentStatus `json:"status"`
	UploadedAt   time.Time      `json:"uploadedAt"`
	VerifiedAt   *time.Time     `json:"verifiedAt,omitempty"`
	VerifiedName string         `json:"verifiedName,omitempty"`
}

// View renders the masked projection of a document.
func (d *Document) View() DocumentView {
	return DocumentView{
		ID:           d.ID.String(),
		Type:         d.Type,
		MaskedNumber: MaskedNumber(d.NumberLast4),
		Status:       d.Status,
		UploadedAt:   d.UploadedAt,
		VerifiedAt:   d.VerifiedAt,
		VerifiedName: d.VerifiedName,
	}
}
