package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stacyposk/logiccart-change-hub/internal/tickets"
)

var csvHeader = []string{
	"ticketId",
	"requesterName",
	"changeType",
	"pageArea",
	"description",
	"pageUrls",
	"targetLaunchDate",
	"status",
	"createdAt",
}

// WriteCSV streams the ticket list as CSV. Status is the mapped UI state so
// the export matches what the dashboard shows.
func WriteCSV(w io.Writer, list []tickets.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range list {
		record := []string{
			t.TicketID,
			t.RequesterName,
			t.ChangeType,
			t.PageArea,
			t.Description,
			strings.Join(t.PageURLs, " "),
			t.TargetLaunchDate,
			string(t.UIStatus()),
			t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", t.TicketID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
