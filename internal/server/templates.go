package server

import (
	"html/template"
	"net/http"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/log"
)

const pageTemplates = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} — LogicCart Change Hub</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:64rem;padding:0 1rem;color:#1a1a2e}
nav{margin-bottom:2rem}nav a{margin-right:1rem}nav .user{float:right;color:#57606a}
table{border-collapse:collapse;width:100%}
th,td{border-bottom:1px solid #ddd;padding:.5rem;text-align:left}
.status-pending{color:#946200}.status-approved{color:#1a7f37}.status-completed{color:#57606a}
label{display:block;margin-top:1rem}
input,select,textarea{width:100%;max-width:30rem;padding:.4rem}
button{margin-top:1rem;padding:.5rem 1.25rem}
.notice{background:#eef6ff;border:1px solid #b6d7ff;padding:1rem;margin-bottom:1rem}
.error{background:#fff0f0;border:1px solid #ffb6b6;padding:1rem;margin-bottom:1rem}
</style>
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}};url={{.RefreshURL}}">{{end}}
</head>
<body>
<nav><a href="/">New request</a><a href="/dashboard">Dashboard</a>{{if .User}}<span class="user">{{.User}}</span>{{end}}</nav>
{{end}}

{{define "foot"}}</body></html>{{end}}

{{define "intake"}}{{template "head" .}}
<h1>Submit a website change request</h1>
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
<form method="post" action="/tickets" enctype="multipart/form-data">
<label>Your name <input name="requesterName" required value="{{.Form.RequesterName}}"></label>
<label>Change type
<select name="changeType" required>
<option value="">Select…</option>
<option value="banner">Banner / visual</option>
<option value="copy">Copy update</option>
<option value="seo">SEO update</option>
<option value="new_content">New content</option>
</select></label>
<label>Page area <input name="pageArea" required value="{{.Form.PageArea}}" placeholder="e.g. homepage hero"></label>
<label>Description <textarea name="description" rows="4" required>{{.Form.Description}}</textarea></label>
<label>Page URLs (one per line) <textarea name="pageUrls" rows="2"></textarea></label>
<label>Target launch date <input type="date" name="targetLaunchDate" value="{{.Form.TargetLaunchDate}}"></label>
<label>Copy (English) <textarea name="copyEn" rows="3">{{.Form.CopyEn}}</textarea></label>
<label>Copy (Chinese) <textarea name="copyZh" rows="3">{{.Form.CopyZh}}</textarea></label>
<label>Image asset (optional) <input type="file" name="asset" accept="image/png,image/jpeg,image/gif"></label>
<label>Image alt text <input name="altText" value=""></label>
<button type="submit">Submit request</button>
</form>
{{template "foot"}}{{end}}

{{define "dashboard"}}{{template "head" .}}
<h1>Change requests</h1>
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
<form method="get" action="/dashboard">
<input name="q" placeholder="Search" value="{{.Query}}">
<select name="status">
<option value="">All statuses</option>
<option value="pending" {{if eq .StatusFilter "pending"}}selected{{end}}>Pending</option>
<option value="approved" {{if eq .StatusFilter "approved"}}selected{{end}}>Approved</option>
<option value="completed" {{if eq .StatusFilter "completed"}}selected{{end}}>Completed</option>
</select>
<select name="sort">
<option value="created_desc" {{if eq .SortKey "created_desc"}}selected{{end}}>Newest first</option>
<option value="created_asc" {{if eq .SortKey "created_asc"}}selected{{end}}>Oldest first</option>
<option value="status" {{if eq .SortKey "status"}}selected{{end}}>By status</option>
</select>
<button type="submit">Apply</button>
<a href="/dashboard/export.csv">Export CSV</a>
</form>
<table>
<tr><th>ID</th><th>Type</th><th>Page area</th><th>Launch</th><th>Status</th><th>Created</th></tr>
{{range .Tickets}}
<tr>
<td><a href="/tickets/{{.TicketID}}">{{.TicketID}}</a></td>
<td>{{.ChangeType}}</td>
<td>{{.PageArea}}</td>
<td>{{.TargetLaunchDate}}</td>
<td class="status-{{.UIStatus}}">{{.UIStatus}}</td>
<td>{{.CreatedAt.Format "2006-01-02"}}</td>
</tr>
{{else}}
<tr><td colspan="6">No change requests yet.</td></tr>
{{end}}
</table>
{{template "foot"}}{{end}}

{{define "ticket"}}{{template "head" .}}
<h1>Request {{.Ticket.TicketID}}</h1>
<table>
<tr><th>Requester</th><td>{{.Ticket.RequesterName}}</td></tr>
<tr><th>Type</th><td>{{.Ticket.ChangeType}}</td></tr>
<tr><th>Page area</th><td>{{.Ticket.PageArea}}</td></tr>
<tr><th>Description</th><td>{{.Ticket.Description}}</td></tr>
<tr><th>Target launch</th><td>{{.Ticket.TargetLaunchDate}}</td></tr>
<tr><th>Status</th><td class="status-{{.Ticket.UIStatus}}">{{.Ticket.UIStatus}}</td></tr>
<tr><th>Created</th><td>{{.Ticket.CreatedAt.Format "2006-01-02 15:04"}}</td></tr>
{{if .Ticket.Decision}}<tr><th>Decision</th><td>{{.Ticket.Decision}}</td></tr>{{end}}
</table>
{{if .Ticket.PageURLs}}<h2>Pages</h2><ul>{{range .Ticket.PageURLs}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Ticket.Assets}}<h2>Assets</h2><ul>{{range .Ticket.Assets}}<li>{{.FileName}} ({{.Width}}×{{.Height}})</li>{{end}}</ul>{{end}}
<p><a href="/dashboard">Back to dashboard</a></p>
{{template "foot"}}{{end}}

{{define "callback_success"}}{{template "head" .}}
<h1>Signed in</h1>
<p>Taking you back to where you left off…</p>
<p><a href="{{.RefreshURL}}">Continue</a></p>
{{template "foot"}}{{end}}

{{define "callback_error"}}{{template "head" .}}
<h1>Sign-in failed</h1>
<p>{{.Reason}}</p>
<p><a href="{{.RetryURL}}">Try again</a></p>
{{template "foot"}}{{end}}

{{define "session_expired"}}{{template "head" .}}
<h1>Session expired</h1>
<p>Your session has expired. Redirecting you to sign in again…</p>
<p><a href="/login">Sign in</a></p>
{{template "foot"}}{{end}}

{{define "server_error"}}{{template "head" .}}
<h1>Something went wrong</h1>
<p>The request could not be completed. Reloading usually helps.</p>
<p><a href="javascript:location.reload()">Reload</a></p>
{{template "foot"}}{{end}}
`

var templates = template.Must(template.New("pages").Parse(pageTemplates))

// refreshSeconds converts a redirect delay to whole seconds for a meta
// refresh. Never below one: a zero-second value would be dropped and strand
// the user on the interstitial page.
func refreshSeconds(d time.Duration) int {
	s := int(d.Round(time.Second).Seconds())
	if s < 1 {
		return 1
	}
	return s
}

func renderPage(w http.ResponseWriter, status int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Change Hub"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.LogError("Failed to render template %s: %v", name, err)
	}
}
