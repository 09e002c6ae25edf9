package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stacyposk/logiccart-change-hub/internal/apiclient"
	"github.com/stacyposk/logiccart-change-hub/internal/authflow"
	"github.com/stacyposk/logiccart-change-hub/internal/config"
	"github.com/stacyposk/logiccart-change-hub/internal/cookie"
	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	"github.com/stacyposk/logiccart-change-hub/internal/dashboard"
	jsonwriter "github.com/stacyposk/logiccart-change-hub/internal/json"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
	"github.com/stacyposk/logiccart-change-hub/internal/tickets"
)

// Handlers wires the auth flow, the credential store and the ticket service
// into HTTP endpoints.
type Handlers struct {
	cfg       config.Config
	initiator *authflow.Initiator
	callback  *authflow.Callback
	creds     credentials.Store
	tickets   *tickets.Service
}

// NewHandlers creates the handler set with dependency injection.
func NewHandlers(cfg config.Config, initiator *authflow.Initiator, callback *authflow.Callback, creds credentials.Store, svc *tickets.Service) *Handlers {
	return &Handlers{
		cfg:       cfg,
		initiator: initiator,
		callback:  callback,
		creds:     creds,
		tickets:   svc,
	}
}

// Routes builds the route table.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.IntakeForm)
	mux.HandleFunc("POST /tickets", h.SubmitTicket)
	mux.HandleFunc("GET /tickets/{id}", h.TicketDetail)
	mux.HandleFunc("GET /dashboard", h.Dashboard)
	mux.HandleFunc("GET /dashboard/export.csv", h.ExportCSV)
	mux.HandleFunc("GET /login", h.Login)
	mux.HandleFunc("GET /oauth/callback", h.OAuthCallback)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.Handle("GET /healthz", NewHealthHandler())
	mux.Handle("PUT /internal/loglevel", NewOpsAuthMiddleware(h.cfg)(http.HandlerFunc(h.SetLogLevel)))
	return mux
}

// Login starts the PKCE handshake, carrying the requested destination.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	sid, err := ensureSessionID(w, r)
	if err != nil {
		log.LogError("Cannot establish session: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.initiator.Begin(w, r, sid, r.URL.Query().Get("next"))
}

// OAuthCallback completes the handshake and renders the terminal state. The
// success page forwards to the original destination after a short delay;
// every failure is terminal with a manual retry link, never an automatic
// one, so a persistently failing provider cannot cause a redirect loop.
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	sid, err := cookie.SessionID(r)
	if err != nil || sid == "" {
		renderPage(w, http.StatusBadRequest, "callback_error", map[string]any{
			"Title":    "Sign-in failed",
			"Reason":   "your browser session could not be found",
			"RetryURL": "/login",
		})
		return
	}

	result := h.callback.Complete(r.Context(), sid, r.URL.Query())
	switch result.Status {
	case authflow.StatusSuccess:
		cookie.SetSessionFlag(w, result.TokenTTL)
		renderPage(w, http.StatusOK, "callback_success", map[string]any{
			"Title":      "Signed in",
			"Refresh":    refreshSeconds(h.cfg.SuccessRedirect),
			"RefreshURL": result.Next,
		})
	default:
		renderPage(w, http.StatusBadRequest, "callback_error", map[string]any{
			"Title":    "Sign-in failed",
			"Reason":   result.Reason,
			"RetryURL": "/login",
		})
	}
}

// Logout drops credentials and cookies, then hands the browser to the
// provider's logout endpoint when one is configured.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sid, err := cookie.SessionID(r); err == nil && sid != "" {
		h.creds.Clear(sid)
	}
	cookie.ClearSessionFlag(w)
	cookie.Clear(w, cookie.SessionIDCookie)

	if h.cfg.LogoutURI != "" {
		q := url.Values{}
		q.Set("client_id", h.cfg.ClientID)
		q.Set("logout_uri", h.cfg.LogoutURI)
		http.Redirect(w, r, strings.TrimSuffix(h.cfg.AuthDomain, "/")+"/logout?"+q.Encode(), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// IntakeForm renders the change-request form, prefilling the requester name
// from the signed-in identity when one is available.
func (h *Handlers) IntakeForm(w http.ResponseWriter, r *http.Request) {
	user := h.displayName(r)
	renderPage(w, http.StatusOK, "intake", map[string]any{
		"Title":  "New request",
		"User":   user,
		"Form":   tickets.CreateRequest{RequesterName: user},
		"Notice": "",
		"Error":  "",
	})
}

// SubmitTicket accepts the intake form and creates the ticket via the API.
func (h *Handlers) SubmitTicket(w http.ResponseWriter, r *http.Request) {
	sid, err := cookie.SessionID(r)
	if err != nil || sid == "" {
		h.redirectToLogin(w, r, "/")
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(maxAssetBytes + 1<<20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid form submission")
		return
	}

	req := tickets.CreateRequest{
		RequesterName:    strings.TrimSpace(r.PostFormValue("requesterName")),
		ChangeType:       strings.TrimSpace(r.PostFormValue("changeType")),
		PageArea:         strings.TrimSpace(r.PostFormValue("pageArea")),
		Description:      strings.TrimSpace(r.PostFormValue("description")),
		TargetLaunchDate: strings.TrimSpace(r.PostFormValue("targetLaunchDate")),
		CopyEn:           r.PostFormValue("copyEn"),
		CopyZh:           r.PostFormValue("copyZh"),
		PageURLs:         splitLines(r.PostFormValue("pageUrls")),
	}

	if err := h.attachAsset(r, sid, &req); err != nil {
		if errors.Is(err, apiclient.ErrAuthRequired) {
			h.redirectToLogin(w, r, "/")
			return
		}
		log.LogError("Asset upload failed: %v", err)
		renderPage(w, http.StatusBadRequest, "intake", map[string]any{
			"Title":  "New request",
			"User":   h.displayName(r),
			"Form":   req,
			"Notice": "",
			"Error":  "The image could not be uploaded: " + err.Error(),
		})
		return
	}

	ticket, err := h.tickets.Create(r.Context(), sid, req)
	if err != nil {
		if errors.Is(err, apiclient.ErrAuthRequired) {
			h.redirectToLogin(w, r, "/")
			return
		}
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			renderPage(w, http.StatusBadRequest, "intake", map[string]any{
				"Title":  "New request",
				"Form":   req,
				"Notice": "",
				"Error":  "The request was rejected: " + apiErr.Message,
			})
			return
		}
		log.LogError("Ticket submission failed: %v", err)
		renderPage(w, http.StatusBadGateway, "intake", map[string]any{
			"Title":  "New request",
			"Form":   req,
			"Notice": "",
			"Error":  "The request could not be submitted right now. Please try again.",
		})
		return
	}

	http.Redirect(w, r, "/dashboard?submitted="+url.QueryEscape(ticket.TicketID), http.StatusSeeOther)
}

// maxAssetBytes caps intake image uploads at 5 MiB, matching the backend's
// pre-signed upload policy.
const maxAssetBytes = 5 << 20

// attachAsset moves an optional form image through the pre-signed upload
// path and records the resulting asset on the request. No file is not an
// error.
func (h *Handlers) attachAsset(r *http.Request, sessionID string, req *tickets.CreateRequest) error {
	if r.MultipartForm == nil {
		return nil
	}
	file, header, err := r.FormFile("asset")
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading form file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAssetBytes+1))
	if err != nil {
		return fmt.Errorf("reading asset: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if len(data) > maxAssetBytes {
		return fmt.Errorf("asset exceeds the %d MiB limit", maxAssetBytes>>20)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	target, err := h.tickets.RequestUploadTarget(r.Context(), sessionID, header.Filename, contentType)
	if err != nil {
		return err
	}
	if err := h.tickets.UploadAsset(r.Context(), target, contentType, data); err != nil {
		return err
	}

	asset := tickets.Asset{
		S3Key:       target.S3Key,
		FileName:    header.Filename,
		ContentType: contentType,
		AltText:     strings.TrimSpace(r.PostFormValue("altText")),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		asset.Width = cfg.Width
		asset.Height = cfg.Height
	}
	req.Assets = append(req.Assets, asset)
	return nil
}

// TicketDetail shows one change request.
func (h *Handlers) TicketDetail(w http.ResponseWriter, r *http.Request) {
	sid, err := cookie.SessionID(r)
	if err != nil || sid == "" {
		h.redirectToLogin(w, r, r.URL.Path)
		return
	}

	ticket, err := h.tickets.Get(r.Context(), sid, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, apiclient.ErrAuthRequired) {
			h.redirectToLogin(w, r, r.URL.Path)
			return
		}
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		log.LogError("Fetching ticket failed: %v", err)
		renderPage(w, http.StatusBadGateway, "server_error", map[string]any{
			"Title": "Error",
		})
		return
	}

	renderPage(w, http.StatusOK, "ticket", map[string]any{
		"Title":  "Request " + ticket.TicketID,
		"User":   h.displayName(r),
		"Ticket": ticket,
	})
}

// Dashboard lists the caller's tickets with filtering and sorting.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadTickets(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := dashboard.Filter{
		Status: tickets.Status(q.Get("status")),
		Search: q.Get("q"),
		Month:  q.Get("month"),
	}
	list = filter.Apply(list)
	sortKey := dashboard.SortKey(q.Get("sort"))
	if sortKey == "" {
		sortKey = dashboard.SortCreatedDesc
	}
	dashboard.Sort(list, sortKey)

	notice := ""
	if submitted := q.Get("submitted"); submitted != "" {
		notice = "Request " + submitted + " submitted."
	}

	renderPage(w, http.StatusOK, "dashboard", map[string]any{
		"Title":        "Dashboard",
		"User":         h.displayName(r),
		"Tickets":      list,
		"Query":        q.Get("q"),
		"StatusFilter": q.Get("status"),
		"SortKey":      string(sortKey),
		"Notice":       notice,
	})
}

// ExportCSV streams the current ticket list as a CSV download.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadTickets(w, r)
	if !ok {
		return
	}
	dashboard.Sort(list, dashboard.SortCreatedDesc)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="change-requests.csv"`)
	if err := dashboard.WriteCSV(w, list); err != nil {
		log.LogError("CSV export failed: %v", err)
	}
}

// SetLogLevel changes the process log level at runtime.
func (h *Handlers) SetLogLevel(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if err := log.SetLogLevel(level); err != nil {
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}
	_ = jsonwriter.Write(w, map[string]string{"level": log.GetLogLevel()})
}

// loadTickets fetches the session's tickets, redirecting through the sign-in
// flow when credentials are missing or rejected.
func (h *Handlers) loadTickets(w http.ResponseWriter, r *http.Request) ([]tickets.Ticket, bool) {
	sid, err := cookie.SessionID(r)
	if err != nil || sid == "" {
		h.redirectToLogin(w, r, r.URL.Path)
		return nil, false
	}

	list, err := h.tickets.List(r.Context(), sid)
	if err != nil {
		if errors.Is(err, apiclient.ErrAuthRequired) {
			h.redirectToLogin(w, r, r.URL.Path)
			return nil, false
		}
		log.LogError("Listing tickets failed: %v", err)
		renderPage(w, http.StatusBadGateway, "server_error", map[string]any{
			"Title": "Error",
		})
		return nil, false
	}
	return list, true
}

// displayName extracts a label for the signed-in user from the stored
// id_token. Empty when signed out or when the token carries no usable claim.
func (h *Handlers) displayName(r *http.Request) string {
	sid, err := cookie.SessionID(r)
	if err != nil || sid == "" {
		return ""
	}
	tokens, ok := h.creds.Get(sid)
	if !ok {
		return ""
	}
	identity, err := credentials.ParseIdentity(tokens.IDToken)
	if err != nil {
		return ""
	}
	if identity.Name != "" {
		return identity.Name
	}
	return identity.Email
}

// redirectToLogin clears the edge marker and restarts the handshake. The
// credential store was already cleared by whoever detected the failure.
func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request, next string) {
	cookie.ClearSessionFlag(w)
	http.Redirect(w, r, "/login?next="+url.QueryEscape(authflow.SanitizeNext(next)), http.StatusFound)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
