package tickets

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stacyposk/logiccart-change-hub/internal/apiclient"
)

// Service exposes the ticket API operations the hub needs. All calls are
// authenticated except the pre-signed upload itself.
type Service struct {
	api *apiclient.Client
}

// NewService creates a Service over the shared API client.
func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

// Create submits a new change request.
func (s *Service) Create(ctx context.Context, sessionID string, req CreateRequest) (Ticket, error) {
	var ticket Ticket
	err := s.api.Do(ctx, sessionID, apiclient.Request{
		Method:        http.MethodPost,
		Path:          "/tickets",
		Body:          req,
		Authenticated: true,
	}, &ticket)
	if err != nil {
		return Ticket{}, fmt.Errorf("creating ticket: %w", err)
	}
	return ticket, nil
}

// List returns the caller's tickets.
func (s *Service) List(ctx context.Context, sessionID string) ([]Ticket, error) {
	var out struct {
		Items []Ticket `json:"items"`
	}
	err := s.api.Do(ctx, sessionID, apiclient.Request{
		Method:        http.MethodGet,
		Path:          "/tickets",
		Authenticated: true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return out.Items, nil
}

// Get returns one ticket by id.
func (s *Service) Get(ctx context.Context, sessionID, ticketID string) (Ticket, error) {
	var ticket Ticket
	err := s.api.Do(ctx, sessionID, apiclient.Request{
		Method:        http.MethodGet,
		Path:          "/tickets/" + ticketID,
		Authenticated: true,
	}, &ticket)
	if err != nil {
		return Ticket{}, fmt.Errorf("fetching ticket %s: %w", ticketID, err)
	}
	return ticket, nil
}

// RequestUploadTarget asks the backend for a pre-signed destination for one
// asset.
func (s *Service) RequestUploadTarget(ctx context.Context, sessionID, fileName, contentType string) (UploadTarget, error) {
	var target UploadTarget
	err := s.api.Do(ctx, sessionID, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/uploads",
		Body: map[string]string{
			"fileName":    fileName,
			"contentType": contentType,
		},
		Authenticated: true,
	}, &target)
	if err != nil {
		return UploadTarget{}, fmt.Errorf("requesting upload target: %w", err)
	}
	return target, nil
}

// UploadAsset pushes asset bytes to the pre-signed destination. This path
// carries no credentials: the URL is its own authorization.
func (s *Service) UploadAsset(ctx context.Context, target UploadTarget, contentType string, data []byte) error {
	if err := s.api.UploadToPresignedURL(ctx, target.UploadURL, contentType, data); err != nil {
		return fmt.Errorf("uploading asset %s: %w", target.S3Key, err)
	}
	return nil
}
