package http

import (
	"bytes"
	"net/http"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, year := ParseDashboardParams(r.URL.Query())

	d, err := s.dashboard.Dashboard(r.Context(), ownerID(r), params, year)
	if err != nil {
		s.internalError(w, r, "Failed to build dashboard", log.OpDashboard, err)
		return
	}

	if d.Transactions == nil {
		d.Transactions = []core.Transaction{}
	}
	if d.Categories == nil {
		d.Categories = aggregate.CategoryTotals{}
	}
	if d.CategoryOptions == nil {
		d.CategoryOptions = []string{}
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseExportParams(r.URL.Query())
	if err != nil {
		BadRequestError("Unsupported export format").Write(w)
		return
	}

	switch p.Format {
	case formatXLSX:
		rows, err := s.dashboard.ExportRows(r.Context(), ownerID(r), p.StartDate, p.EndDate)
		if err != nil {
			s.internalError(w, r, "Failed to export transactions", log.OpExport, err)
			return
		}
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, rows, s.dashboard.Engine().FormatDate); err != nil {
			s.internalError(w, r, "Failed to export transactions", log.OpExport, err)
			return
		}
		writeAttachment(w, export.ContentType, "transactions.xlsx", buf.Bytes())

	default:
		out, err := s.dashboard.ExportCSV(r.Context(), ownerID(r), p.StartDate, p.EndDate)
		if err != nil {
			s.internalError(w, r, "Failed to export transactions", log.OpExport, err)
			return
		}
		writeAttachment(w, "text/csv", "transactions.csv", []byte(out))
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentDashboard).InfoContext(r.Context(), "Exported transactions",
		log.FieldOwnerID, ownerID(r),
		"format", string(p.Format))
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
