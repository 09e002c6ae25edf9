package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/stacyposk/logiccart-change-hub/internal/ioutil"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
)

// uploadAttempts is deliberately lower than the API ceiling: resubmitting a
// whole asset body is expensive, so a pre-signed upload gets one retry.
const uploadAttempts = 2

// UploadToPresignedURL PUTs an asset body to object storage via a pre-signed
// URL. The URL embeds its own signature over the exact request, so no
// Authorization header is ever attached; a bearer header would invalidate
// the signature.
func (c *Client) UploadToPresignedURL(ctx context.Context, presignedURL, contentType string, data []byte) error {
	var lastErr error

	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPut, presignedURL, bytes.NewReader(data))
		if err != nil {
			cancel()
			return fmt.Errorf("building upload request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			cancel()
			if attemptCtx.Err() == context.DeadlineExceeded {
				lastErr = fmt.Errorf("upload: %w", ErrTimeout)
			} else {
				lastErr = fmt.Errorf("upload: %w", err)
			}
		} else {
			body := ioutil.ReadLimited(resp.Body, 1024)
			_ = resp.Body.Close()
			cancel()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = &APIError{Status: resp.StatusCode, Message: body}
			if resp.StatusCode < 500 {
				// A signed request the storage service rejects outright will
				// not succeed on resubmission.
				return lastErr
			}
		}

		if attempt < uploadAttempts {
			log.LogWarnWithFields("apiclient", "Retrying upload", map[string]any{
				"attempt": attempt,
			})
		}
	}

	return lastErr
}
