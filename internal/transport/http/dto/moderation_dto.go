package dto

import "time"

type SubmitCredentialRequest struct {
	CertificateURL string `json:"certificate_url"`
}

type ModerationStateResponse struct {
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	Approved       bool      `json:"approved"`
	CertificateURL string    `json:"certificate_url,omitempty"`
	RejectReason   string    `json:"reject_reason,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

type ReviewItemResponse struct {
	UserID         string    `json:"user_id"`
	ProfileName    string    `json:"profile_name"`
	Email          string    `json:"email"`
	CertificateURL string    `json:"certificate_url,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type ReviewQueueResponse struct {
	Items []ReviewItemResponse `json:"items"`
}
