package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/transfer"
)

type exporter func(io.Writer, core.Snapshot) error

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "application/json; charset=utf-8", "json", transfer.ExportJSON)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", transfer.ExportXLSX)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "text/csv; charset=utf-8", "csv", transfer.ExportCSV)
}

// export renders into a buffer first so a failing encoder still yields a
// proper error response instead of a truncated download.
func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType, ext string, fn exporter) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := fn(&buf, m.Snapshot()); err != nil {
		writeError(w, r, fmt.Errorf("export %s: %w", ext, err))
		return
	}

	name := fmt.Sprintf("financeflow-%s.%s", s.now().Format(time.DateOnly), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Export write interrupted",
			log.FieldOperation, log.OpExport, log.FieldError, err)
	}
}
