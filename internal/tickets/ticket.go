// Package tickets models website change-request tickets and talks to the
// ticket API on behalf of a session.
package tickets

import "time"

// Asset is an uploaded image attached to a ticket. Dimensions are captured
// at submission time for the review pipeline.
type Asset struct {
	S3Key       string `json:"s3Key"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	AltText     string `json:"altText,omitempty"`
}

// Ticket is one change request as the backend stores it. Status holds the
// backend's raw value; use MapBackendStatus for display.
type Ticket struct {
	TicketID         string    `json:"ticketId"`
	RequesterName    string    `json:"requesterName"`
	RequesterEmail   string    `json:"requesterEmail,omitempty"`
	ChangeType       string    `json:"changeType"`
	PageArea         string    `json:"pageArea"`
	Description      string    `json:"description"`
	PageURLs         []string  `json:"pageUrls,omitempty"`
	TargetLaunchDate string    `json:"targetLaunchDate,omitempty"`
	Language         string    `json:"language,omitempty"`
	CopyEn           string    `json:"copyEn,omitempty"`
	CopyZh           string    `json:"copyZh,omitempty"`
	Status           string    `json:"status"`
	Decision         string    `json:"decision,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
	Assets           []Asset   `json:"assets,omitempty"`
}

// CreateRequest is the intake form payload.
type CreateRequest struct {
	RequesterName    string   `json:"requesterName"`
	ChangeType       string   `json:"changeType"`
	PageArea         string   `json:"pageArea"`
	Description      string   `json:"description"`
	PageURLs         []string `json:"pageUrls,omitempty"`
	TargetLaunchDate string   `json:"targetLaunchDate,omitempty"`
	Language         string   `json:"language,omitempty"`
	CopyEn           string   `json:"copyEn,omitempty"`
	CopyZh           string   `json:"copyZh,omitempty"`
	Assets           []Asset  `json:"assets,omitempty"`
}

// UploadTarget is a pre-signed destination for one asset.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
}
